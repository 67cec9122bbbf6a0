package pg

import (
	"context"
	"database/sql"
	"errors"

	"gatekeeper.dev/internal/authz"
)

func (s *Store) CreateUser(ctx context.Context, u *authz.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, username, email, password)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, u.ID, u.Username, u.Email, u.HashedPassword)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return conflictf("user with username %s already exists", u.Username)
		}
		return err
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*authz.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var u authz.User
	err := s.db.QueryRowContext(ctx, `
		select id, username, email, password, created_at, updated_at
		from users
		where id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("user with id %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*authz.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var u authz.User
	err := s.db.QueryRowContext(ctx, `
		select id, username, email, password, created_at, updated_at
		from users
		where username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("user with username %s not found", username)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *authz.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set username = $2, email = $3, password = $4, updated_at = now()
		where id = $1
	`, u.ID, u.Username, u.Email, u.HashedPassword)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return conflictf("user with username %s already exists", u.Username)
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return notFoundf("user with id %s not found", u.ID)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return notFoundf("user with id %s not found", id)
	}
	return nil
}
