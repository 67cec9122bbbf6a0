package authz

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"gatekeeper.dev/internal/token"
)

func newTestUserService(t *testing.T) (*UserService, *InMemory) {
	t.Helper()
	tokens, err := token.NewService("unit-test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	store := NewInMemory()
	svc, err := NewUserService(store, BcryptHasher{Cost: bcrypt.MinCost}, tokens, nil)
	if err != nil {
		t.Fatalf("user service: %v", err)
	}
	return svc, store
}

func TestRegisterDerivesEmailFromUsername(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.Register(context.Background(), "alice", "", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("derived email = %q, want alice@example.com", user.Email)
	}
	if user.ID == "" {
		t.Fatalf("register did not assign an id")
	}
	if user.HashedPassword == "s3cret" {
		t.Fatalf("password stored in the clear")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@corp.test", "s3cret"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "other@corp.test", "s3cret")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate username must fail with already-exists, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", "", "s3cret"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank username: got %v, want invalid-input", err)
	}
	if _, err := svc.Register(ctx, "alice", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty password: got %v, want invalid-input", err)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	session, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatalf("login returned an empty token")
	}
	if session.ExpiresIn != 86400 {
		t.Fatalf("expiresIn = %d, want 86400", session.ExpiresIn)
	}

	got, err := svc.Authenticate(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID || got.Username != "alice" {
		t.Fatalf("authenticate resolved the wrong user: %+v", got)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "", "s3cret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "nobody", "s3cret"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown username: got %v, want not-found", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: got %v, want unauthorized", err)
	}
}

func TestChangePasswordInvalidatesOldCredential(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "", "old-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "new-pass"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "old-pass"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old credential still accepted: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "new-pass"); err != nil {
		t.Fatalf("new credential rejected: %v", err)
	}
}
