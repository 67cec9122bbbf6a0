package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gatekeeper.dev/internal/authz"
)

func (s *Store) CreateService(ctx context.Context, svc *authz.Service) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		insert into services (id, name, description, url, icon, version)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, svc.ID, svc.Name, svc.Description, nullIfEmpty(svc.URL), nullIfEmpty(svc.Icon), svc.Version)
	if err := row.Scan(&svc.CreatedAt, &svc.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return conflictf("service with name %s already exists", svc.Name)
		}
		return err
	}
	return nil
}

func (s *Store) FindService(ctx context.Context, id string) (*authz.Service, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	svc, err := scanService(s.db.QueryRowContext(ctx, serviceSelect+` where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("service with id %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Store) FindServiceByName(ctx context.Context, name string) (*authz.Service, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	svc, err := scanService(s.db.QueryRowContext(ctx, serviceSelect+` where name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("service with name %s not found", name)
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]*authz.Service, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, serviceSelect+` order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*authz.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) UpdateService(ctx context.Context, id string, upd authz.ServiceUpdate) (*authz.Service, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, *upd.Description)
		idx++
	}
	if upd.URL != nil {
		sets = append(sets, fmt.Sprintf("url = $%d", idx))
		args = append(args, nullIfEmpty(*upd.URL))
		idx++
	}
	if upd.Icon != nil {
		sets = append(sets, fmt.Sprintf("icon = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Icon))
		idx++
	}
	if upd.Version != nil {
		sets = append(sets, fmt.Sprintf("version = $%d", idx))
		args = append(args, *upd.Version)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update services set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, conflictf("service with name %s already exists", *upd.Name)
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, notFoundf("service with id %s not found", id)
		}
	}
	return s.FindService(ctx, id)
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from services where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return notFoundf("service with id %s not found", id)
	}
	return nil
}

const serviceSelect = `
	select id, name, description, url, icon, version, created_at, updated_at
	from services`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*authz.Service, error) {
	var (
		svc       authz.Service
		url, icon sql.NullString
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &url, &icon, &svc.Version, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return nil, err
	}
	if url.Valid {
		svc.URL = url.String
	}
	if icon.Valid {
		svc.Icon = icon.String
	}
	return &svc, nil
}
