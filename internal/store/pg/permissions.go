package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gatekeeper.dev/internal/authz"
)

// SyncForService reconciles the permission rows of one service inside a
// single transaction. Each entry is upserted on the (service_id, name) pair,
// then every persisted row whose name is absent from the input is deleted.
func (s *Store) SyncForService(ctx context.Context, serviceID string, permissions []authz.Permission) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range permissions {
		if _, err := tx.ExecContext(ctx, `
			insert into permissions (id, name, service_id, description)
			values ($1, $2, $3, $4)
			on conflict (service_id, name) do update
			set description = excluded.description, updated_at = now()
			where permissions.description is distinct from excluded.description
		`, p.ID, p.Name, serviceID, p.Description); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return notFoundf("service with id %s not found", serviceID)
			}
			return err
		}
	}

	if len(permissions) == 0 {
		if _, err := tx.ExecContext(ctx, `delete from permissions where service_id = $1`, serviceID); err != nil {
			return err
		}
		return tx.Commit()
	}

	args := []any{serviceID}
	placeholders := make([]string, 0, len(permissions))
	for i, p := range permissions {
		args = append(args, p.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
	}
	query := fmt.Sprintf(`
		delete from permissions
		where service_id = $1 and name not in (%s)
	`, strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FindUserPermissions(ctx context.Context, userID, serviceName string) ([]authz.Permission, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select distinct `+permissionColumns+`
		from user_groups ug
		join group_permissions gp on gp.group_id = ug.group_id
		join permissions p on p.id = gp.permission_id
		join services s on s.id = p.service_id
		where ug.user_id = $1 and s.name = $2
		order by p.name
	`, userID, serviceName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (s *Store) FindServicePermissions(ctx context.Context, serviceID string) ([]authz.Permission, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+permissionColumns+`
		from permissions p
		join services s on s.id = p.service_id
		where p.service_id = $1
		order by p.name
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (s *Store) FindGroupPermissions(ctx context.Context, groupID string) ([]authz.Permission, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+permissionColumns+`
		from group_permissions gp
		join permissions p on p.id = gp.permission_id
		join services s on s.id = p.service_id
		where gp.group_id = $1
		order by p.name
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

const permissionColumns = `
		p.id, p.name, p.description, p.created_at, p.updated_at,
		s.id, s.name, s.description, s.url, s.icon, s.version, s.created_at, s.updated_at`

func collectPermissions(rows *sql.Rows) ([]authz.Permission, error) {
	var perms []authz.Permission
	for rows.Next() {
		var (
			p         authz.Permission
			url, icon sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt,
			&p.Service.ID, &p.Service.Name, &p.Service.Description, &url, &icon,
			&p.Service.Version, &p.Service.CreatedAt, &p.Service.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if url.Valid {
			p.Service.URL = url.String
		}
		if icon.Valid {
			p.Service.Icon = icon.String
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}
