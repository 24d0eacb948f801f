package pg

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

type staffRepo struct{ pool *pgxpool.Pool }

const staffColumns = `id, full_name, email, phone_number, role, created_by, created_at`

func scanStaff(row interface{ Scan(dest ...any) error }) (*repository.StaffMember, error) {
	var m repository.StaffMember
	if err := row.Scan(&m.ID, &m.FullName, &m.Email, &m.PhoneNumber, &m.Role, &m.CreatedBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *staffRepo) List(ctx context.Context) ([]repository.StaffMember, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, mapErr("list staff", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.StaffMember, error) {
		m, err := scanStaff(row)
		if err != nil {
			return repository.StaffMember{}, err
		}
		return *m, nil
	})
	if err != nil {
		return nil, mapErr("list staff", err)
	}
	return out, nil
}

func (r *staffRepo) Create(ctx context.Context, in repository.CreateStaffInput) (*repository.StaffMember, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.FullName)
	if email == "" || name == "" || !in.Role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO staff (id, full_name, email, phone_number, role, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + staffColumns
	m, err := scanStaff(r.pool.QueryRow(ctx, query,
		uuid.NewString(), name, email,
		nullIfEmpty(strings.TrimSpace(in.PhoneNumber)),
		string(in.Role),
		nullIfEmpty(in.CreatedBy),
	))
	if err != nil {
		return nil, mapErr("create staff", err)
	}
	return m, nil
}
