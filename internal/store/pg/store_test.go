package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"gatekeeper.dev/internal/authz"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestSyncForServiceUpsertsThenDeletesMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into permissions").
		WithArgs("p-1", "invoice.read", "svc-1", "read invoices").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into permissions").
		WithArgs("p-2", "invoice.write", "svc-1", "write invoices").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from permissions").
		WithArgs("svc-1", "invoice.read", "invoice.write").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SyncForService(context.Background(), "svc-1", []authz.Permission{
		{ID: "p-1", Name: "invoice.read", Description: "read invoices"},
		{ID: "p-2", Name: "invoice.write", Description: "write invoices"},
	})
	if err != nil {
		t.Fatalf("SyncForService: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncForServiceEmptyInputDeletesAll(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from permissions where service_id").
		WithArgs("svc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	if err := store.SyncForService(context.Background(), "svc-1", nil); err != nil {
		t.Fatalf("SyncForService: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncForServiceRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into permissions").
		WithArgs("p-1", "invoice.read", "svc-1", "").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.SyncForService(context.Background(), "svc-1", []authz.Permission{
		{ID: "p-1", Name: "invoice.read"},
	})
	if err == nil {
		t.Fatalf("expected the insert failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WithArgs("u-1", "alice", "alice@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.CreateUser(context.Background(), &authz.User{
		ID: "u-1", Username: "alice", Email: "alice@example.com", HashedPassword: "hash",
	})
	if !errors.Is(err, authz.ErrAlreadyExists) {
		t.Fatalf("unique violation: got %v, want already-exists", err)
	}
}

func TestFindUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, username, email, password, created_at, updated_at").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password", "created_at", "updated_at"}))

	_, err := store.FindUser(context.Background(), "missing")
	if !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("missing user: got %v, want not-found", err)
	}
}

func TestUpdateServicePartialSet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("update services set description").
		WithArgs("new description", "svc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select id, name, description, url, icon, version, created_at, updated_at").
		WithArgs("svc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "url", "icon", "version", "created_at", "updated_at"}).
			AddRow("svc-1", "billing", "new description", nil, nil, "1.0.0", now, now))

	desc := "new description"
	svc, err := store.UpdateService(context.Background(), "svc-1", authz.ServiceUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateService: %v", err)
	}
	if svc.Description != desc || svc.Name != "billing" {
		t.Fatalf("unexpected service after update: %+v", svc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddGroupPermissionsTouchesGroup(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from groups").
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("insert into group_permissions").
		WithArgs("g-1", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update groups set updated_at").
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.AddGroupPermissions(context.Background(), "g-1", []string{"p-1"}); err != nil {
		t.Fatalf("AddGroupPermissions: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
