package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gatekeeper.dev/internal/authz"
)

func (s *Store) CreateGroup(ctx context.Context, g *authz.PermissionGroup) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if _, err := s.db.ExecContext(ctx, `
		insert into groups (id, name, description, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
	`, g.ID(), g.Name(), g.Description(), g.CreatedAt(), g.UpdatedAt()); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return conflictf("permission group with name %s already exists", g.Name())
		}
		return err
	}
	return nil
}

func (s *Store) FindGroup(ctx context.Context, id string) (*authz.PermissionGroup, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select id, name, description, created_at, updated_at
		from groups
		where id = $1
	`, id)
	group, err := s.hydrateGroup(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("group with id %s not found", id)
	}
	return group, err
}

func (s *Store) FindGroupByName(ctx context.Context, name string) (*authz.PermissionGroup, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select id, name, description, created_at, updated_at
		from groups
		where name = $1
	`, name)
	group, err := s.hydrateGroup(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("group with name %s not found", name)
	}
	return group, err
}

func (s *Store) UpdateGroup(ctx context.Context, g *authz.PermissionGroup) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update groups
		set name = $2, description = $3, updated_at = $4
		where id = $1
	`, g.ID(), g.Name(), g.Description(), g.UpdatedAt())
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return conflictf("permission group with name %s already exists", g.Name())
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return notFoundf("group with id %s not found", g.ID())
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from groups where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return notFoundf("group with id %s not found", id)
	}
	return nil
}

func (s *Store) FindUserGroups(ctx context.Context, userID string) ([]*authz.PermissionGroup, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select g.id, g.name, g.description, g.created_at, g.updated_at
		from groups g
		join user_groups ug on ug.group_id = g.id
		where ug.user_id = $1
		order by g.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*authz.PermissionGroup
	for rows.Next() {
		group, err := s.hydrateGroup(ctx, rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Store) AddGroupPermissions(ctx context.Context, groupID string, permissionIDs []string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from groups where id = $1`, groupID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundf("group with id %s not found", groupID)
		}
		return err
	}

	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into group_permissions (group_id, permission_id)
			values ($1, $2)
			on conflict do nothing
		`, groupID, permID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return notFoundf("permission with id %s not found", permID)
			}
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `update groups set updated_at = now() where id = $1`, groupID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) RemoveGroupPermissions(ctx context.Context, groupID string, permissionIDs []string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from groups where id = $1`, groupID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundf("group with id %s not found", groupID)
		}
		return err
	}

	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx, `
			delete from group_permissions
			where group_id = $1 and permission_id = $2
		`, groupID, permID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `update groups set updated_at = now() where id = $1`, groupID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AssignUser(ctx context.Context, groupID, userID string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if _, err := s.db.ExecContext(ctx, `
		insert into user_groups (user_id, group_id)
		values ($1, $2)
		on conflict do nothing
	`, userID, groupID); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return notFoundf("group with id %s not found", groupID)
		}
		return err
	}
	return nil
}

func (s *Store) RemoveUser(ctx context.Context, groupID, userID string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		delete from user_groups
		where user_id = $1 and group_id = $2
	`, userID, groupID)
	return err
}

// hydrateGroup scans a group row and loads its permission membership.
func (s *Store) hydrateGroup(ctx context.Context, row rowScanner) (*authz.PermissionGroup, error) {
	var (
		id, name, description string
		createdAt, updatedAt  time.Time
	)
	if err := row.Scan(&id, &name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	perms, err := s.FindGroupPermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return authz.RestorePermissionGroup(id, name, description, perms, createdAt, updatedAt), nil
}
