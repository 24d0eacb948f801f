package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

// usersPerPage es el tamaño de página del listado admin.
var usersPerPage = 200

// maxUserPages corta la paginación si el proveedor ignora ?page.
var maxUserPages = 50

type credentialRepo struct{ c *Client }

type remoteUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UserMetadata     struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

func (u remoteUser) credential() *repository.Credential {
	return &repository.Credential{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil,
		FullName:       u.UserMetadata.FullName,
		CreatedAt:      u.CreatedAt,
	}
}

// FindByEmail pagina el listado admin hasta encontrar el email
// (la admin API no filtra por email).
func (r *credentialRepo) FindByEmail(ctx context.Context, email string) (*repository.Credential, error) {
	want := strings.ToLower(strings.TrimSpace(email))
	for page := 1; ; page++ {
		if page > maxUserPages {
			return nil, fmt.Errorf("remote: list users: more than %d pages: %w", maxUserPages, repository.ErrUnavailable)
		}
		raw, err := r.c.do(ctx, request{
			method: http.MethodGet,
			path:   fmt.Sprintf("/auth/v1/admin/users?page=%d&per_page=%d", page, usersPerPage),
			key:    r.c.serviceKey,
		})
		if err != nil {
			return nil, mapErr("list users", err)
		}
		var out struct {
			Users []remoteUser `json:"users"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("remote: decode users: %w", err)
		}
		for _, u := range out.Users {
			if strings.EqualFold(u.Email, want) {
				return u.credential(), nil
			}
		}
		if len(out.Users) < usersPerPage {
			return nil, repository.ErrNotFound
		}
	}
}

func (r *credentialRepo) Create(ctx context.Context, in repository.CreateCredentialInput) (*repository.Credential, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, repository.ErrInvalidInput
	}
	body := map[string]any{
		"email":         email,
		"password":      in.Password,
		"email_confirm": in.EmailConfirmed,
		"user_metadata": map[string]string{"full_name": in.FullName},
	}
	raw, err := r.c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/admin/users", key: r.c.serviceKey, body: body})
	if err != nil {
		if isDuplicateUser(err) {
			return nil, fmt.Errorf("remote: create user: %w", repository.ErrConflict)
		}
		return nil, mapErr("create user", err)
	}
	var u remoteUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("remote: decode user: %w", err)
	}
	return u.credential(), nil
}

// isDuplicateUser reconoce las variantes de "ya registrado" de la admin API.
func isDuplicateUser(err error) bool {
	e, ok := asAPIError(err)
	if !ok {
		return false
	}
	if e.Status == http.StatusConflict {
		return true
	}
	if e.Status != http.StatusUnprocessableEntity && e.Status != http.StatusBadRequest {
		return false
	}
	t := e.text()
	return strings.Contains(t, "email_exists") || strings.Contains(t, "already been registered") || strings.Contains(t, "already registered")
}

func (r *credentialRepo) updateUser(ctx context.Context, op, id string, body map[string]any) error {
	_, err := r.c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/admin/users/" + url.PathEscape(id),
		key:    r.c.serviceKey,
		body:   body,
	})
	return mapErr(op, err)
}

func (r *credentialRepo) UpdatePassword(ctx context.Context, id, plain string) error {
	return r.updateUser(ctx, "update password", id, map[string]any{"password": plain})
}

func (r *credentialRepo) ConfirmEmail(ctx context.Context, id string) error {
	return r.updateUser(ctx, "confirm email", id, map[string]any{"email_confirm": true})
}

func (r *credentialRepo) SignIn(ctx context.Context, email, plain string) (*repository.Session, error) {
	raw, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=password",
		key:    r.c.anonKey,
		body:   map[string]string{"email": strings.TrimSpace(email), "password": plain},
	})
	if err != nil {
		if e, ok := asAPIError(err); ok && e.Status >= 400 && e.Status < 500 {
			t := e.text()
			switch {
			case strings.Contains(t, "not confirmed") || strings.Contains(t, "email_not_confirmed"):
				return nil, repository.ErrEmailNotConfirmed
			case strings.Contains(t, "invalid_grant") || strings.Contains(t, "invalid_credentials") || strings.Contains(t, "invalid login credentials"):
				return nil, repository.ErrInvalidCredentials
			}
		}
		return nil, mapErr("sign in", err)
	}

	var out struct {
		AccessToken string     `json:"access_token"`
		ExpiresIn   int64      `json:"expires_in"`
		User        remoteUser `json:"user"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("remote: decode token: %w", err)
	}
	now := time.Now().UTC()
	return &repository.Session{
		ID:        uuid.NewString(),
		UserID:    out.User.ID,
		Email:     out.User.Email,
		Token:     out.AccessToken,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// SignOut cierra la sesión del access token. Un token ya inválido cuenta como cerrado.
func (r *credentialRepo) SignOut(ctx context.Context, s *repository.Session) error {
	if s == nil || s.Token == "" {
		return nil
	}
	_, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		key:    r.c.anonKey,
		bearer: s.Token,
	})
	if e, ok := asAPIError(err); ok && (e.Status == http.StatusUnauthorized || e.Status == http.StatusNotFound || e.Status == http.StatusForbidden) {
		return nil
	}
	return mapErr("sign out", err)
}

func (r *credentialRepo) ActiveSessions(context.Context, string) (int, error) {
	return 0, fmt.Errorf("remote: active sessions: %w", repository.ErrNotImplemented)
}
