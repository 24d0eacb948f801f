package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

// ─── profiles ───

type profileRepo struct{ c *Client }

type profileRow struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	Role      repository.Role `json:"role"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

func (p profileRow) profile() repository.Profile {
	out := repository.Profile{ID: p.ID, Email: p.Email, FullName: p.FullName, Role: p.Role}
	if p.CreatedAt != nil {
		out.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	return out
}

func (r *profileRepo) rest(ctx context.Context, method, query string, body any, prefer string) ([]profileRow, error) {
	raw, err := r.c.do(ctx, request{
		method: method,
		path:   "/rest/v1/profiles" + query,
		key:    r.c.serviceKey,
		body:   body,
		prefer: prefer,
	})
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var rows []profileRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("remote: decode profiles: %w", err)
	}
	return rows, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*repository.Profile, error) {
	rows, err := r.rest(ctx, http.MethodGet, "?select=*&id=eq."+url.QueryEscape(id), nil, "")
	if err != nil {
		return nil, mapErr("get profile", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	p := rows[0].profile()
	return &p, nil
}

// Upsert usa merge-duplicates sobre la PK: un solo request, created_at intacto.
func (r *profileRepo) Upsert(ctx context.Context, p repository.Profile) error {
	if p.ID == "" || !p.Role.Valid() {
		return repository.ErrInvalidInput
	}
	now := time.Now().UTC()
	row := profileRow{ID: p.ID, Email: p.Email, FullName: p.FullName, Role: p.Role, UpdatedAt: &now}
	_, err := r.rest(ctx, http.MethodPost, "?on_conflict=id", row, "resolution=merge-duplicates,return=minimal")
	return mapErr("upsert profile", err)
}

func (r *profileRepo) List(ctx context.Context) ([]repository.Profile, error) {
	rows, err := r.rest(ctx, http.MethodGet, "?select=*&order=created_at.desc", nil, "")
	if err != nil {
		return nil, mapErr("list profiles", err)
	}
	out := make([]repository.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.profile())
	}
	return out, nil
}

func (r *profileRepo) UpdateRole(ctx context.Context, id string, role repository.Role) (*repository.Profile, error) {
	if !role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	now := time.Now().UTC()
	body := map[string]any{"role": role, "updated_at": now}
	rows, err := r.rest(ctx, http.MethodPatch, "?id=eq."+url.QueryEscape(id), body, "return=representation")
	if err != nil {
		return nil, mapErr("update role", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	p := rows[0].profile()
	return &p, nil
}

// ─── staff ───

type staffRepo struct{ c *Client }

type staffRow struct {
	ID          string               `json:"id,omitempty"`
	FullName    string               `json:"full_name"`
	Email       string               `json:"email"`
	PhoneNumber *string              `json:"phone_number"`
	Role        repository.StaffRole `json:"role"`
	CreatedBy   *string              `json:"created_by"`
	CreatedAt   *time.Time           `json:"created_at,omitempty"`
}

func (s staffRow) member() repository.StaffMember {
	m := repository.StaffMember{
		ID: s.ID, FullName: s.FullName, Email: s.Email,
		PhoneNumber: s.PhoneNumber, Role: s.Role, CreatedBy: s.CreatedBy,
	}
	if s.CreatedAt != nil {
		m.CreatedAt = *s.CreatedAt
	}
	return m
}

func (r *staffRepo) List(ctx context.Context) ([]repository.StaffMember, error) {
	raw, err := r.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/staff?select=*&order=created_at.desc",
		key:    r.c.serviceKey,
	})
	if err != nil {
		return nil, mapErr("list staff", err)
	}
	var rows []staffRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("remote: decode staff: %w", err)
	}
	out := make([]repository.StaffMember, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.member())
	}
	return out, nil
}

func (r *staffRepo) Create(ctx context.Context, in repository.CreateStaffInput) (*repository.StaffMember, error) {
	row := staffRow{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Role:     in.Role,
	}
	if row.Email == "" || row.FullName == "" || !row.Role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	if phone := strings.TrimSpace(in.PhoneNumber); phone != "" {
		row.PhoneNumber = &phone
	}
	if in.CreatedBy != "" {
		by := in.CreatedBy
		row.CreatedBy = &by
	}

	raw, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/staff",
		key:    r.c.serviceKey,
		body:   row,
		prefer: "return=representation",
	})
	if err != nil {
		return nil, mapErr("create staff", err)
	}
	var rows []staffRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("remote: decode staff: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("remote: create staff: empty representation")
	}
	m := rows[0].member()
	return &m, nil
}
