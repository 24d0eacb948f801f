package pg

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	tokens "github.com/dropDatabas3/printdesk/internal/security/token"
)

// credentialRepo implementa repository.CredentialStore sobre auth_users y auth_sessions.
type credentialRepo struct {
	pool       *pgxpool.Pool
	sessionTTL time.Duration
	hash       password.Params
}

const credentialColumns = `id, email, password_hash, email_confirmed, full_name, created_at`

func scanCredential(row interface{ Scan(dest ...any) error }) (*repository.Credential, error) {
	var c repository.Credential
	if err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.EmailConfirmed, &c.FullName, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *credentialRepo) FindByEmail(ctx context.Context, email string) (*repository.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM auth_users WHERE LOWER(email) = LOWER($1)`
	c, err := scanCredential(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		return nil, mapErr("find credential", err)
	}
	return c, nil
}

func (r *credentialRepo) Create(ctx context.Context, in repository.CreateCredentialInput) (*repository.Credential, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, repository.ErrInvalidInput
	}
	phc, err := password.Hash(r.hash, in.Password)
	if err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO auth_users (id, email, password_hash, email_confirmed, full_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + credentialColumns
	c, err := scanCredential(r.pool.QueryRow(ctx, query, uuid.NewString(), email, phc, in.EmailConfirmed, in.FullName))
	if err != nil {
		return nil, mapErr("create credential", err)
	}
	return c, nil
}

func (r *credentialRepo) UpdatePassword(ctx context.Context, id, plain string) error {
	phc, err := password.Hash(r.hash, plain)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE auth_users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, phc)
	if err != nil {
		return mapErr("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *credentialRepo) ConfirmEmail(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE auth_users SET email_confirmed = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapErr("confirm email", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *credentialRepo) SignIn(ctx context.Context, email, plain string) (*repository.Session, error) {
	c, err := r.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, repository.ErrInvalidCredentials
		}
		return nil, err
	}
	if ok, err := password.Verify(plain, c.PasswordHash); err != nil || !ok {
		return nil, repository.ErrInvalidCredentials
	}
	if !c.EmailConfirmed {
		return nil, repository.ErrEmailNotConfirmed
	}

	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}
	s := repository.Session{ID: uuid.NewString(), UserID: c.ID, Email: c.Email, Token: raw}

	const query = `
		INSERT INTO auth_sessions (id, user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		RETURNING created_at, expires_at`
	err = r.pool.QueryRow(ctx, query, s.ID, s.UserID, tokens.SHA256Base64URL(raw), time.Now().Add(r.sessionTTL)).
		Scan(&s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, mapErr("create session", err)
	}
	return &s, nil
}

// SignOut revoca la sesión; revocar dos veces no es error.
func (r *credentialRepo) SignOut(ctx context.Context, s *repository.Session) error {
	if s == nil {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE auth_sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, s.ID)
	return mapErr("revoke session", err)
}

func (r *credentialRepo) ActiveSessions(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM auth_sessions WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()`,
		userID).Scan(&n)
	if err != nil {
		return 0, mapErr("count sessions", err)
	}
	return n, nil
}
