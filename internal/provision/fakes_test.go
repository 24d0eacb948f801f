package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	"github.com/dropDatabas3/printdesk/internal/store/adapters/memory"
)

var fastHash = password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16, SaltLen: 8}

func newMemory() *memory.Store { return memory.New(memory.WithHashParams(fastHash)) }

// unreachableCreds simula un store de credenciales caído.
type unreachableCreds struct{}

func (unreachableCreds) err(op string) error {
	return fmt.Errorf("fake: %s: %w", op, repository.ErrUnavailable)
}

func (u unreachableCreds) FindByEmail(context.Context, string) (*repository.Credential, error) {
	return nil, u.err("find")
}
func (u unreachableCreds) Create(context.Context, repository.CreateCredentialInput) (*repository.Credential, error) {
	return nil, u.err("create")
}
func (u unreachableCreds) UpdatePassword(context.Context, string, string) error {
	return u.err("update")
}
func (u unreachableCreds) ConfirmEmail(context.Context, string) error { return u.err("confirm") }
func (u unreachableCreds) SignIn(context.Context, string, string) (*repository.Session, error) {
	return nil, u.err("sign in")
}
func (u unreachableCreds) SignOut(context.Context, *repository.Session) error {
	return u.err("sign out")
}
func (u unreachableCreds) ActiveSessions(context.Context, string) (int, error) {
	return 0, u.err("sessions")
}

// barrierCreds retiene los dos primeros lookups hasta que ambos llegaron,
// así dos corridas ven "no existe" y compiten en el create.
type barrierCreds struct {
	repository.CredentialStore

	mu      sync.Mutex
	arrived int
	gate    chan struct{}
}

func newBarrierCreds(inner repository.CredentialStore) *barrierCreds {
	return &barrierCreds{CredentialStore: inner, gate: make(chan struct{})}
}

func (b *barrierCreds) FindByEmail(ctx context.Context, email string) (*repository.Credential, error) {
	c, err := b.CredentialStore.FindByEmail(ctx, email)

	b.mu.Lock()
	if b.arrived >= 2 {
		b.mu.Unlock()
		return c, err
	}
	b.arrived++
	if b.arrived == 2 {
		close(b.gate)
	}
	b.mu.Unlock()

	select {
	case <-b.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c, err
}

// hookedCreds permite interceptar operaciones puntuales.
type hookedCreds struct {
	repository.CredentialStore

	mu           sync.Mutex
	createErr    error
	signOutErr   error
	afterSignIn  func()
	signOutCtxOK []bool
	signIns      int
	signOuts     int
}

func (h *hookedCreds) Create(ctx context.Context, in repository.CreateCredentialInput) (*repository.Credential, error) {
	if h.createErr != nil {
		return nil, h.createErr
	}
	return h.CredentialStore.Create(ctx, in)
}

func (h *hookedCreds) SignIn(ctx context.Context, email, pw string) (*repository.Session, error) {
	s, err := h.CredentialStore.SignIn(ctx, email, pw)
	h.mu.Lock()
	h.signIns++
	h.mu.Unlock()
	if h.afterSignIn != nil {
		h.afterSignIn()
	}
	return s, err
}

func (h *hookedCreds) SignOut(ctx context.Context, s *repository.Session) error {
	h.mu.Lock()
	h.signOuts++
	h.signOutCtxOK = append(h.signOutCtxOK, ctx.Err() == nil)
	h.mu.Unlock()
	if err := h.CredentialStore.SignOut(ctx, s); err != nil {
		return err
	}
	return h.signOutErr
}

// failingProfiles rechaza todos los upserts.
type failingProfiles struct {
	repository.ProfileRepository
}

func (failingProfiles) Upsert(context.Context, repository.Profile) error {
	return fmt.Errorf("fake: upsert: %w", repository.ErrInvalidInput)
}

// gatedCreds retiene el primer lookup hasta release, avisando en entered.
type gatedCreds struct {
	repository.CredentialStore

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedCreds(inner repository.CredentialStore) *gatedCreds {
	return &gatedCreds{CredentialStore: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedCreds) FindByEmail(ctx context.Context, email string) (*repository.Credential, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.CredentialStore.FindByEmail(ctx, email)
}
