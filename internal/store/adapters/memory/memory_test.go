package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	"github.com/dropDatabas3/printdesk/internal/store"
)

var fastHash = password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16, SaltLen: 8}

func newTestStore(opts ...Option) *Store {
	return New(append([]Option{WithHashParams(fastHash)}, opts...)...)
}

func TestAdapterRegistered(t *testing.T) {
	assert.Contains(t, store.ListAdapters(), "memory")

	conn, err := store.Open(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", conn.Name())
	assert.NoError(t, conn.Ping(context.Background()))
}

func TestCredentials_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	creds := s.Credentials()

	_, err := creds.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	c, err := creds.Create(ctx, repository.CreateCredentialInput{
		Email: "A@X.com", Password: "p1", FullName: "Ada", EmailConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", c.Email)
	assert.NotEmpty(t, c.ID)
	assert.NotContains(t, c.PasswordHash, "p1")

	got, err := creds.FindByEmail(ctx, "a@X.COM")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = creds.Create(ctx, repository.CreateCredentialInput{Email: "a@x.com", Password: "other"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCredentials_CreateConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	creds := newTestStore().Credentials()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := creds.Create(ctx, repository.CreateCredentialInput{Email: "race@x.com", Password: "pw"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if repository.IsConflict(err) {
				dupes++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, dupes)
}

func TestCredentials_SignInLifecycle(t *testing.T) {
	ctx := context.Background()
	creds := newTestStore().Credentials()

	c, err := creds.Create(ctx, repository.CreateCredentialInput{Email: "u@x.com", Password: "secret"})
	require.NoError(t, err)

	_, err = creds.SignIn(ctx, "u@x.com", "wrong")
	assert.ErrorIs(t, err, repository.ErrInvalidCredentials)

	_, err = creds.SignIn(ctx, "nobody@x.com", "secret")
	assert.ErrorIs(t, err, repository.ErrInvalidCredentials)

	_, err = creds.SignIn(ctx, "u@x.com", "secret")
	assert.ErrorIs(t, err, repository.ErrEmailNotConfirmed)

	require.NoError(t, creds.ConfirmEmail(ctx, c.ID))

	sess, err := creds.SignIn(ctx, "u@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, c.ID, sess.UserID)
	assert.NotEmpty(t, sess.Token)

	n, err := creds.ActiveSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, creds.SignOut(ctx, sess))
	require.NoError(t, creds.SignOut(ctx, sess))
	n, err = creds.ActiveSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCredentials_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	creds := newTestStore().Credentials()

	c, err := creds.Create(ctx, repository.CreateCredentialInput{Email: "u@x.com", Password: "old", EmailConfirmed: true})
	require.NoError(t, err)

	require.NoError(t, creds.UpdatePassword(ctx, c.ID, "new"))
	_, err = creds.SignIn(ctx, "u@x.com", "old")
	assert.ErrorIs(t, err, repository.ErrInvalidCredentials)
	_, err = creds.SignIn(ctx, "u@x.com", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, creds.UpdatePassword(ctx, "missing", "x"), repository.ErrNotFound)
	assert.ErrorIs(t, creds.ConfirmEmail(ctx, "missing"), repository.ErrNotFound)
}

func TestSessionsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(WithSessionTTL(time.Minute), WithClock(func() time.Time { return now }))
	creds := s.Credentials()

	c, err := creds.Create(ctx, repository.CreateCredentialInput{Email: "u@x.com", Password: "pw", EmailConfirmed: true})
	require.NoError(t, err)
	_, err = creds.SignIn(ctx, "u@x.com", "pw")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	n, err := creds.ActiveSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProfiles_UpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(WithClock(func() time.Time { return now }))
	profiles := s.Profiles()

	_, err := profiles.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, profiles.Upsert(ctx, repository.Profile{ID: "u1", Email: "a@x.com", FullName: "A", Role: repository.RoleStaff}))
	created := now

	now = now.Add(time.Hour)
	require.NoError(t, profiles.Upsert(ctx, repository.Profile{ID: "u1", Email: "a@x.com", FullName: "Admin", Role: repository.RoleAdmin}))

	p, err := profiles.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, p.Role)
	assert.Equal(t, "Admin", p.FullName)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)

	assert.ErrorIs(t, profiles.Upsert(ctx, repository.Profile{ID: "u2", Role: "owner"}), repository.ErrInvalidInput)
}

func TestProfiles_ListAndUpdateRole(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(WithClock(func() time.Time { return now }))
	profiles := s.Profiles()

	require.NoError(t, profiles.Upsert(ctx, repository.Profile{ID: "old", Role: repository.RoleStaff}))
	now = now.Add(time.Minute)
	require.NoError(t, profiles.Upsert(ctx, repository.Profile{ID: "new", Role: repository.RoleStaff}))

	list, err := profiles.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)

	p, err := profiles.UpdateRole(ctx, "old", repository.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, p.Role)

	_, err = profiles.UpdateRole(ctx, "missing", repository.RoleAdmin)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = profiles.UpdateRole(ctx, "old", "root")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestStaff_CreateAndList(t *testing.T) {
	ctx := context.Background()
	staff := newTestStore().Staff()

	m, err := staff.Create(ctx, repository.CreateStaffInput{
		FullName: " Grace ", Email: "Grace@X.com", Role: repository.StaffRoleDesigner, CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", m.FullName)
	assert.Equal(t, "grace@x.com", m.Email)
	assert.Nil(t, m.PhoneNumber)
	require.NotNil(t, m.CreatedBy)
	assert.Equal(t, "admin-1", *m.CreatedBy)

	_, err = staff.Create(ctx, repository.CreateStaffInput{FullName: "G2", Email: "grace@x.com", Role: repository.StaffRoleStaff})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = staff.Create(ctx, repository.CreateStaffInput{FullName: "X", Email: "x@x.com", Role: "boss"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	list, err := staff.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
