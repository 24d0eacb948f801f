package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	dto "github.com/dropDatabas3/printdesk/internal/http/dto/auth"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	"github.com/dropDatabas3/printdesk/internal/store/adapters/memory"
)

func TestSessionCache(t *testing.T) {
	ctx := context.Background()
	sc := NewSessionCache(cache.NewMemory(time.Minute), time.Hour)

	s := &repository.Session{ID: "s1", UserID: "u1", Email: "a@x.com", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sc.Put(ctx, s))

	got, err := sc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	assert.NoError(t, sc.ValidateSession(ctx, "s1", "u1"))
	assert.ErrorIs(t, sc.ValidateSession(ctx, "s1", "u2"), mw.ErrSessionInactive)
	assert.ErrorIs(t, sc.ValidateSession(ctx, "nope", "u1"), mw.ErrSessionInactive)

	require.NoError(t, sc.Delete(ctx, "s1"))
	assert.ErrorIs(t, sc.ValidateSession(ctx, "s1", "u1"), mw.ErrSessionInactive)

	expired := &repository.Session{ID: "s2", UserID: "u1", ExpiresAt: time.Now().Add(-time.Second)}
	assert.Error(t, sc.Put(ctx, expired))
}

type countingProfiles struct {
	repository.ProfileRepository
	gets int
}

func (c *countingProfiles) GetByID(ctx context.Context, id string) (*repository.Profile, error) {
	c.gets++
	return c.ProfileRepository.GetByID(ctx, id)
}

func TestRoleCache(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.Profiles().Upsert(ctx, repository.Profile{ID: "u1", Email: "a@x.com", Role: repository.RoleStaff}))

	profiles := &countingProfiles{ProfileRepository: st.Profiles()}
	rc := NewRoleCache(profiles, cache.NewMemory(time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		role, err := rc.RoleOf(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, repository.RoleStaff, role)
	}
	assert.Equal(t, 1, profiles.gets)

	_, err := st.Profiles().UpdateRole(ctx, "u1", repository.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, rc.Invalidate(ctx, "u1"))

	role, err := rc.RoleOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, role)

	_, err = rc.RoleOf(ctx, "ghost")
	assert.True(t, repository.IsNotFound(err))
}

func TestLoginService(t *testing.T) {
	ctx := context.Background()
	st := memory.New(memory.WithHashParams(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16, SaltLen: 8}))
	c, err := st.Credentials().Create(ctx, repository.CreateCredentialInput{Email: "a@x.com", Password: "pw-123456", EmailConfirmed: true})
	require.NoError(t, err)

	issuer := newIssuer(t)
	svcs := NewServices(Deps{
		Credentials: st.Credentials(),
		Profiles:    st.Profiles(),
		Cache:       cache.NewMemory(time.Minute),
		Issuer:      issuer,
	})

	res, err := svcs.Login.Login(ctx, loginReq("a@x.com", "pw-123456"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Empty(t, res.User.Role, "sin perfil no hay rol")

	claims, err := issuer.Parse(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, c.ID, claims["sub"])
	sid, _ := claims["sid"].(string)
	require.NotEmpty(t, sid)

	n, err := st.Credentials().ActiveSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svcs.Login.Logout(ctx, sid))
	require.NoError(t, svcs.Login.Logout(ctx, sid), "logout es idempotente")
	n, err = st.Credentials().ActiveSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = svcs.Login.Login(ctx, loginReq("a@x.com", "bad"))
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svcs.Login.Login(ctx, loginReq("", "x"))
	assert.True(t, errors.Is(err, ErrMissingFields))
	_, err = svcs.Login.Me(ctx, c.ID)
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func newIssuer(t *testing.T) *jwtx.Issuer {
	t.Helper()
	ks, err := jwtx.NewEphemeralKeySet()
	require.NoError(t, err)
	return jwtx.NewIssuer("test", ks, time.Minute)
}

func loginReq(email, pass string) dto.LoginRequest {
	return dto.LoginRequest{Email: email, Password: pass}
}
