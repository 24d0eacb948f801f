// Package memory implementa el adapter en memoria: credenciales, sesiones,
// profiles y staff protegidos por un único mutex.
//
// La unicidad de email se chequea y se escribe bajo el mismo lock, igual que
// la constraint UNIQUE del adapter postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	tokens "github.com/dropDatabas3/printdesk/internal/security/token"
	"github.com/dropDatabas3/printdesk/internal/store"
)

func init() {
	store.RegisterAdapter(memoryAdapter{})
}

type memoryAdapter struct{}

func (memoryAdapter) Name() string { return "memory" }

func (memoryAdapter) Connect(_ context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	return New(WithSessionTTL(cfg.SessionTTL)), nil
}

// Option configura el Store.
type Option func(*Store)

// WithHashParams cambia los parámetros argon2id (tests usan params baratos).
func WithHashParams(p password.Params) Option {
	return func(s *Store) { s.hash = p }
}

// WithSessionTTL cambia la duración de las sesiones (default 12h).
func WithSessionTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithClock reemplaza time.Now (tests de expiración).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type session struct {
	repository.Session
	tokenHash string
	revoked   bool
}

// Store implementa store.Connection en memoria.
type Store struct {
	mu sync.RWMutex

	creds   map[string]repository.Credential // por id
	byEmail map[string]string                // email normalizado -> id

	sessions map[string]*session // por session id

	profiles map[string]repository.Profile

	staff        map[string]repository.StaffMember
	staffByEmail map[string]string

	hash       password.Params
	sessionTTL time.Duration
	now        func() time.Time
}

// New crea un Store vacío.
func New(opts ...Option) *Store {
	s := &Store{
		creds:        map[string]repository.Credential{},
		byEmail:      map[string]string{},
		sessions:     map[string]*session{},
		profiles:     map[string]repository.Profile{},
		staff:        map[string]repository.StaffMember{},
		staffByEmail: map[string]string{},
		hash:         password.Default,
		sessionTTL:   12 * time.Hour,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Store) Name() string               { return "memory" }
func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) Credentials() repository.CredentialStore { return credentialRepo{s} }
func (s *Store) Profiles() repository.ProfileRepository  { return profileRepo{s} }
func (s *Store) Staff() repository.StaffRepository       { return staffRepo{s} }

// ─── CredentialStore ───

type credentialRepo struct{ s *Store }

func (r credentialRepo) FindByEmail(ctx context.Context, email string) (*repository.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byEmail[normEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := r.s.creds[id]
	return &c, nil
}

func (r credentialRepo) Create(ctx context.Context, in repository.CreateCredentialInput) (*repository.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email := normEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, repository.ErrInvalidInput
	}
	// hash fuera del lock: argon2 es caro
	phc, err := password.Hash(r.s.hash, in.Password)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.byEmail[email]; taken {
		return nil, repository.ErrConflict
	}
	c := repository.Credential{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   phc,
		EmailConfirmed: in.EmailConfirmed,
		FullName:       in.FullName,
		CreatedAt:      r.s.now().UTC(),
	}
	r.s.creds[c.ID] = c
	r.s.byEmail[email] = c.ID
	return &c, nil
}

func (r credentialRepo) UpdatePassword(ctx context.Context, id, plain string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	phc, err := password.Hash(r.s.hash, plain)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.creds[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.PasswordHash = phc
	r.s.creds[id] = c
	return nil
}

func (r credentialRepo) ConfirmEmail(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.creds[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.EmailConfirmed = true
	r.s.creds[id] = c
	return nil
}

func (r credentialRepo) SignIn(ctx context.Context, email, plain string) (*repository.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	id, ok := r.s.byEmail[normEmail(email)]
	c := r.s.creds[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrInvalidCredentials
	}
	if match, err := password.Verify(plain, c.PasswordHash); err != nil || !match {
		return nil, repository.ErrInvalidCredentials
	}
	if !c.EmailConfirmed {
		return nil, repository.ErrEmailNotConfirmed
	}

	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}
	now := r.s.now().UTC()
	sess := &session{
		Session: repository.Session{
			ID:        uuid.NewString(),
			UserID:    c.ID,
			Email:     c.Email,
			Token:     raw,
			CreatedAt: now,
			ExpiresAt: now.Add(r.s.sessionTTL),
		},
		tokenHash: tokens.SHA256Base64URL(raw),
	}

	r.s.mu.Lock()
	r.s.sessions[sess.ID] = sess
	r.s.mu.Unlock()

	out := sess.Session
	return &out, nil
}

func (r credentialRepo) SignOut(_ context.Context, in *repository.Session) error {
	if in == nil {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[in.ID]; ok {
		sess.revoked = true
	}
	return nil
}

func (r credentialRepo) ActiveSessions(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	n := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && !sess.revoked && !sess.Expired(now) {
			n++
		}
	}
	return n, nil
}

// ─── ProfileRepository ───

type profileRepo struct{ s *Store }

func (r profileRepo) GetByID(ctx context.Context, id string) (*repository.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r profileRepo) Upsert(ctx context.Context, p repository.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ID == "" || !p.Role.Valid() {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now().UTC()
	if prev, ok := r.s.profiles[p.ID]; ok {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.profiles[p.ID] = p
	return nil
}

func (r profileRepo) List(ctx context.Context) ([]repository.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := make([]repository.Profile, 0, len(r.s.profiles))
	for _, p := range r.s.profiles {
		out = append(out, p)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r profileRepo) UpdateRole(ctx context.Context, id string, role repository.Role) (*repository.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = r.s.now().UTC()
	r.s.profiles[id] = p
	return &p, nil
}

// ─── StaffRepository ───

type staffRepo struct{ s *Store }

func (r staffRepo) List(ctx context.Context) ([]repository.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := make([]repository.StaffMember, 0, len(r.s.staff))
	for _, m := range r.s.staff {
		out = append(out, m)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r staffRepo) Create(ctx context.Context, in repository.CreateStaffInput) (*repository.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email := normEmail(in.Email)
	if email == "" || strings.TrimSpace(in.FullName) == "" || !in.Role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.staffByEmail[email]; taken {
		return nil, repository.ErrConflict
	}
	m := repository.StaffMember{
		ID:        uuid.NewString(),
		FullName:  strings.TrimSpace(in.FullName),
		Email:     email,
		Role:      in.Role,
		CreatedAt: r.s.now().UTC(),
	}
	if phone := strings.TrimSpace(in.PhoneNumber); phone != "" {
		m.PhoneNumber = &phone
	}
	if in.CreatedBy != "" {
		by := in.CreatedBy
		m.CreatedBy = &by
	}
	r.s.staff[m.ID] = m
	r.s.staffByEmail[email] = m.ID
	return &m, nil
}
