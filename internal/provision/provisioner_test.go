package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	"github.com/dropDatabas3/printdesk/internal/store/adapters/memory"
)

const (
	adminEmail    = "a@x.com"
	adminPassword = "s3cret-Admin!"
	adminName     = "Administrator"
)

var adminInput = Input{Email: adminEmail, Password: adminPassword, FullName: adminName}

func newProvisioner(mem *memory.Store, opts Options) *Provisioner {
	return New(Deps{Credentials: mem.Credentials(), Profiles: mem.Profiles()}, opts)
}

func ignoreTimestamps() cmp.Option {
	return cmpopts.IgnoreFields(repository.Profile{}, "CreatedAt", "UpdatedAt")
}

func TestEnsureDefaultAdmin_FreshStore(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()

	res, err := newProvisioner(mem, DefaultOptions()).EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, adminEmail, res.AdminEmail)
	require.NotEmpty(t, res.UserID)

	cred, err := mem.Credentials().FindByEmail(ctx, adminEmail)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, cred.ID)
	assert.True(t, cred.EmailConfirmed)

	p, err := mem.Profiles().GetByID(ctx, res.UserID)
	require.NoError(t, err)
	want := repository.Profile{ID: res.UserID, Email: adminEmail, FullName: adminName, Role: repository.RoleAdmin}
	assert.Empty(t, cmp.Diff(want, *p, ignoreTimestamps()))
}

func TestEnsureDefaultAdmin_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	prov := newProvisioner(mem, DefaultOptions())

	first, err := prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	second, err := prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.False(t, second.Created)
	assert.False(t, second.PasswordRepaired)
	assert.False(t, second.EmailConfirmed)
	assert.False(t, second.ProfileChanged)

	profiles, err := mem.Profiles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestEnsureDefaultAdmin_NormalizesEmail(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	prov := newProvisioner(mem, DefaultOptions())

	first, err := prov.EnsureDefaultAdmin(ctx, Input{Email: " A@X.com ", Password: adminPassword, FullName: adminName})
	require.NoError(t, err)
	assert.Equal(t, adminEmail, first.AdminEmail)

	second, err := prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestEnsureDefaultAdmin_ConcurrentFirstRun(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	creds := newBarrierCreds(mem.Credentials())

	// dos "procesos": provisioners independientes sobre el mismo store
	a := New(Deps{Credentials: creds, Profiles: mem.Profiles()}, DefaultOptions())
	b := New(Deps{Credentials: creds, Profiles: mem.Profiles()}, DefaultOptions())

	var resA, resB *Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resA, err = a.EnsureDefaultAdmin(gctx, adminInput)
		return err
	})
	g.Go(func() (err error) {
		resB, err = b.EnsureDefaultAdmin(gctx, adminInput)
		return err
	})
	require.NoError(t, g.Wait())

	assert.Equal(t, resA.UserID, resB.UserID)
	assert.True(t, resA.Created != resB.Created, "exactly one run creates the credential")

	profiles, err := mem.Profiles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestEnsureDefaultAdmin_InProcessCallsShareOneRun(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	prov := newProvisioner(mem, DefaultOptions())

	results := make([]*Result, 5)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() (err error) {
			results[i], err = prov.EnsureDefaultAdmin(ctx, adminInput)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, r := range results {
		assert.Equal(t, results[0].UserID, r.UserID)
	}
}

func TestEnsureDefaultAdmin_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()

	cred, err := mem.Credentials().Create(ctx, repository.CreateCredentialInput{
		Email: adminEmail, Password: "someone-changed-it", FullName: "Old",
	})
	require.NoError(t, err)
	require.NoError(t, mem.Profiles().Upsert(ctx, repository.Profile{
		ID: cred.ID, Email: "old@x.com", FullName: "Old", Role: repository.RoleStaff,
	}))

	res, err := newProvisioner(mem, DefaultOptions()).EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, res.UserID)
	assert.False(t, res.Created)
	assert.True(t, res.EmailConfirmed)
	assert.True(t, res.PasswordRepaired)
	assert.True(t, res.ProfileChanged)

	sess, err := mem.Credentials().SignIn(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	require.NoError(t, mem.Credentials().SignOut(ctx, sess))

	p, err := mem.Profiles().GetByID(ctx, cred.ID)
	require.NoError(t, err)
	want := repository.Profile{ID: cred.ID, Email: adminEmail, FullName: adminName, Role: repository.RoleAdmin}
	assert.Empty(t, cmp.Diff(want, *p, ignoreTimestamps()))
}

func TestEnsureDefaultAdmin_ProfileOnlyDrift(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	prov := newProvisioner(mem, DefaultOptions())

	first, err := prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)

	_, err = mem.Profiles().UpdateRole(ctx, first.UserID, repository.RoleStaff)
	require.NoError(t, err)

	res, err := prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	assert.True(t, res.ProfileChanged)
	assert.False(t, res.PasswordRepaired)

	p, err := mem.Profiles().GetByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, p.Role)
}

func TestEnsureDefaultAdmin_NoSessionsLeft(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	hooked := &hookedCreds{CredentialStore: mem.Credentials()}
	prov := New(Deps{Credentials: hooked, Profiles: mem.Profiles()}, DefaultOptions())

	res, err := prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	require.NoError(t, mem.Credentials().UpdatePassword(ctx, res.UserID, "drifted"))
	_, err = prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)

	n, err := mem.Credentials().ActiveSessions(ctx, res.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Positive(t, hooked.signIns)
}

func TestEnsureDefaultAdmin_OptionalSteps(t *testing.T) {
	ctx := context.Background()

	drifted := func(t *testing.T) *memory.Store {
		mem := newMemory()
		_, err := mem.Credentials().Create(ctx, repository.CreateCredentialInput{
			Email: adminEmail, Password: "other", EmailConfirmed: true,
		})
		require.NoError(t, err)
		return mem
	}

	t.Run("no repair, final check fails", func(t *testing.T) {
		_, err := newProvisioner(drifted(t), Options{FinalCheck: true}).EnsureDefaultAdmin(ctx, adminInput)
		require.Error(t, err)
		assert.Equal(t, StepVerify, StepOf(err))
		assert.ErrorIs(t, err, repository.ErrInvalidCredentials)
		var ae *AuthError
		assert.ErrorAs(t, err, &ae)
	})

	t.Run("no repair, no final check", func(t *testing.T) {
		mem := drifted(t)
		hooked := &hookedCreds{CredentialStore: mem.Credentials()}
		prov := New(Deps{Credentials: hooked, Profiles: mem.Profiles()}, Options{})
		res, err := prov.EnsureDefaultAdmin(ctx, adminInput)
		require.NoError(t, err)
		assert.False(t, res.PasswordRepaired)
		assert.Zero(t, hooked.signIns)
	})
}

func TestEnsureDefaultAdmin_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		_, err := newProvisioner(newMemory(), DefaultOptions()).EnsureDefaultAdmin(ctx, Input{Email: adminEmail})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, StepValidate, StepOf(err))
	})

	t.Run("credential store unreachable", func(t *testing.T) {
		prov := New(Deps{Credentials: unreachableCreds{}, Profiles: newMemory().Profiles()}, DefaultOptions())
		res, err := prov.EnsureDefaultAdmin(ctx, adminInput)
		assert.Nil(t, res)

		var pe *ProvisionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, StepLookup, pe.Step)
		var le *LookupError
		assert.ErrorAs(t, err, &le)
		assert.ErrorIs(t, err, repository.ErrUnavailable)
	})

	t.Run("create rejected", func(t *testing.T) {
		mem := newMemory()
		hooked := &hookedCreds{CredentialStore: mem.Credentials(), createErr: fmt.Errorf("fake: %w", repository.ErrInvalidInput)}
		_, err := New(Deps{Credentials: hooked, Profiles: mem.Profiles()}, DefaultOptions()).EnsureDefaultAdmin(ctx, adminInput)

		assert.Equal(t, StepCreate, StepOf(err))
		var ce *CreationError
		require.ErrorAs(t, err, &ce)
		assert.False(t, ce.Duplicate)
	})

	t.Run("duplicate but not found on re-read", func(t *testing.T) {
		mem := newMemory()
		hooked := &hookedCreds{CredentialStore: mem.Credentials(), createErr: repository.ErrConflict}
		_, err := New(Deps{Credentials: hooked, Profiles: mem.Profiles()}, DefaultOptions()).EnsureDefaultAdmin(ctx, adminInput)

		assert.Equal(t, StepCreate, StepOf(err))
		var ce *CreationError
		require.ErrorAs(t, err, &ce)
		assert.True(t, ce.Duplicate)
	})

	t.Run("profile rejected", func(t *testing.T) {
		mem := newMemory()
		prov := New(Deps{Credentials: mem.Credentials(), Profiles: failingProfiles{mem.Profiles()}}, DefaultOptions())
		_, err := prov.EnsureDefaultAdmin(ctx, adminInput)

		assert.Equal(t, StepReconcileProfile, StepOf(err))
		var pe *PersistenceError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("never leaks the password", func(t *testing.T) {
		prov := New(Deps{Credentials: unreachableCreds{}, Profiles: newMemory().Profiles()}, DefaultOptions())
		_, err := prov.EnsureDefaultAdmin(ctx, adminInput)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), adminPassword)
	})
}

func TestEnsureDefaultAdmin_LogsWithoutCredentials(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))
	mem := newMemory()

	_, err := mem.Credentials().Create(ctx, repository.CreateCredentialInput{Email: adminEmail, Password: "other"})
	require.NoError(t, err)
	_, err = newProvisioner(mem, DefaultOptions()).EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)

	_, err = New(Deps{Credentials: unreachableCreds{}, Profiles: mem.Profiles()}, DefaultOptions()).EnsureDefaultAdmin(ctx, adminInput)
	require.Error(t, err)

	require.NotZero(t, logs.Len())
	for _, e := range logs.All() {
		line := e.Message + fmt.Sprint(e.ContextMap())
		assert.NotContains(t, line, adminPassword)
		assert.NotContains(t, line, adminEmail)
	}
	assert.NotZero(t, logs.FilterMessage("admin password drifted, reset to configured value").Len())
	assert.NotZero(t, logs.FilterMessage("provisioning failed").Len())
}

func TestEnsureDefaultAdmin_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	mem := newMemory()
	prov := New(Deps{Credentials: mem.Credentials(), Profiles: mem.Profiles(), Metrics: m}, DefaultOptions())
	_, err = prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)
	_, err = prov.EnsureDefaultAdmin(ctx, adminInput)
	require.NoError(t, err)

	failing := New(Deps{Credentials: unreachableCreds{}, Profiles: mem.Profiles(), Metrics: m}, DefaultOptions())
	_, err = failing.EnsureDefaultAdmin(ctx, adminInput)
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "provision_runs_total", "outcome", "created"))
	assert.Equal(t, 1.0, counterValue(t, reg, "provision_runs_total", "outcome", "reconciled"))
	assert.Equal(t, 1.0, counterValue(t, reg, "provision_runs_total", "outcome", "failed"))
	assert.Equal(t, 1.0, counterValue(t, reg, "provision_repairs_total", "kind", "profile"))

	again, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, m.runs, again.runs)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestStepOf(t *testing.T) {
	assert.Equal(t, Step(""), StepOf(errors.New("plain")))
	wrapped := fmt.Errorf("outer: %w", &ProvisionError{Step: StepVerify, Err: errors.New("x")})
	assert.Equal(t, StepVerify, StepOf(wrapped))
}

func TestEnsureDefaultAdmin_CancelledCallerDoesNotAbortSharedRun(t *testing.T) {
	mem := newMemory()
	gated := newGatedCreds(mem.Credentials())
	prov := New(Deps{Credentials: gated, Profiles: mem.Profiles()}, DefaultOptions())

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := prov.EnsureDefaultAdmin(ctxA, adminInput)
		errA <- err
	}()
	<-gated.entered

	type outcome struct {
		res *Result
		err error
	}
	outB := make(chan outcome, 1)
	go func() {
		res, err := prov.EnsureDefaultAdmin(context.Background(), adminInput)
		outB <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond) // B se suma a la corrida en curso

	cancelA()
	err := <-errA
	assert.Equal(t, StepWait, StepOf(err))
	assert.ErrorIs(t, err, context.Canceled)

	close(gated.release)
	b := <-outB
	require.NoError(t, b.err)
	assert.NotEmpty(t, b.res.UserID)

	cred, err := mem.Credentials().FindByEmail(context.Background(), adminEmail)
	require.NoError(t, err)
	assert.Equal(t, b.res.UserID, cred.ID)
}
