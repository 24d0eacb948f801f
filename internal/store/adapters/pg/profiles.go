package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

type profileRepo struct{ pool *pgxpool.Pool }

const profileColumns = `id, email, full_name, role, created_at, updated_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (*repository.Profile, error) {
	var p repository.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*repository.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get profile", err)
	}
	return p, nil
}

// Upsert escribe en un solo statement; created_at se conserva en conflicto.
func (r *profileRepo) Upsert(ctx context.Context, p repository.Profile) error {
	if p.ID == "" || !p.Role.Valid() {
		return repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO profiles (id, email, full_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			role = EXCLUDED.role,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query, p.ID, p.Email, p.FullName, string(p.Role))
	return mapErr("upsert profile", err)
}

func (r *profileRepo) List(ctx context.Context) ([]repository.Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, mapErr("list profiles", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Profile, error) {
		p, err := scanProfile(row)
		if err != nil {
			return repository.Profile{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, mapErr("list profiles", err)
	}
	return out, nil
}

func (r *profileRepo) UpdateRole(ctx context.Context, id string, role repository.Role) (*repository.Profile, error) {
	if !role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	const query = `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, query, id, string(role)))
	if err != nil {
		return nil, mapErr("update role", err)
	}
	return p, nil
}
