package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

func TestCredentialAccessor_FindByEmail(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	acc := NewCredentialAccessor(mem.Credentials())

	c, found, err := acc.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, c)

	_, _, err = NewCredentialAccessor(unreachableCreds{}).FindByEmail(ctx, "a@x.com")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "credential", le.Target)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestCredentialAccessor_CreateConfirmsEmail(t *testing.T) {
	ctx := context.Background()
	acc := NewCredentialAccessor(newMemory().Credentials())

	c, err := acc.Create(ctx, "a@x.com", "pw", "Admin")
	require.NoError(t, err)
	assert.True(t, c.EmailConfirmed)

	_, err = acc.Create(ctx, "a@x.com", "pw", "Admin")
	var ce *CreationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Duplicate)
	assert.Equal(t, "a***@x.com", ce.Email)
	assert.NotContains(t, err.Error(), "pw")
}

func TestCredentialAccessor_UpdateErrors(t *testing.T) {
	acc := NewCredentialAccessor(newMemory().Credentials())

	err := acc.UpdatePassword(context.Background(), "missing", "pw")
	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "password", ue.Field)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = acc.ConfirmEmail(context.Background(), "missing")
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "email_confirmed", ue.Field)
}

func TestVerifyLogin_ClosesSession(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	c, err := mem.Credentials().Create(ctx, repository.CreateCredentialInput{Email: "a@x.com", Password: "pw", EmailConfirmed: true})
	require.NoError(t, err)

	acc := NewCredentialAccessor(mem.Credentials())
	got, err := acc.VerifyLogin(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	n, err := mem.Credentials().ActiveSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = acc.VerifyLogin(ctx, "a@x.com", "wrong")
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, repository.ErrInvalidCredentials)
}

func TestVerifyLogin_SignsOutAfterCallerCancel(t *testing.T) {
	mem := newMemory()
	c, err := mem.Credentials().Create(context.Background(), repository.CreateCredentialInput{Email: "a@x.com", Password: "pw", EmailConfirmed: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hooked := &hookedCreds{CredentialStore: mem.Credentials(), afterSignIn: cancel}

	_, err = NewCredentialAccessor(hooked).VerifyLogin(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, hooked.signOutCtxOK)

	n, err := mem.Credentials().ActiveSessions(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVerifyLogin_SignOutFailureIsAnError(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	_, err := mem.Credentials().Create(ctx, repository.CreateCredentialInput{Email: "a@x.com", Password: "pw", EmailConfirmed: true})
	require.NoError(t, err)

	boom := errors.New("logout rejected")
	hooked := &hookedCreds{CredentialStore: mem.Credentials(), signOutErr: boom}

	got, err := NewCredentialAccessor(hooked).VerifyLogin(ctx, "a@x.com", "pw")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
	var ae *AuthError
	assert.ErrorAs(t, err, &ae)
}
