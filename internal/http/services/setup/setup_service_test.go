package setup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/printdesk/internal/setup"
)

type stateTrigger struct {
	state setup.State
	fires int
}

func (f *stateTrigger) Fire(context.Context) bool {
	f.fires++
	return f.fires == 1
}

func (f *stateTrigger) State() setup.State { return f.state }

func TestStatus_Disabled(t *testing.T) {
	svc := NewSetupService(nil)
	st := svc.Status(context.Background())
	assert.False(t, st.Enabled)
	assert.Equal(t, string(setup.PhaseUnset), st.Phase)

	_, fired, err := svc.Run(context.Background())
	assert.False(t, fired)
	assert.ErrorIs(t, err, ErrSetupDisabled)
}

func TestStatus_FailedRunHidesBackendError(t *testing.T) {
	now := time.Now().UTC()
	trig := &stateTrigger{state: setup.State{
		Phase:      setup.PhaseFailed,
		StartedAt:  &now,
		FinishedAt: &now,
		Outcome: &setup.Outcome{
			Success: false,
			Error:   "provision: step lookup: lookup credential: pg: dial tcp 10.1.2.3:5432: connection refused",
			Step:    "lookup",
		},
	}}

	st := NewSetupService(trig).Status(context.Background())
	require.NotNil(t, st.Outcome)
	assert.Equal(t, "provisioning failed at step lookup", st.Outcome.Error)
	assert.Equal(t, "lookup", st.Outcome.Step)
	assert.NotContains(t, st.Outcome.Error, "10.1.2.3")

	// la vista pública es una copia
	assert.Contains(t, trig.state.Outcome.Error, "10.1.2.3")
}

func TestStatus_FailedRunWithoutStep(t *testing.T) {
	trig := &stateTrigger{state: setup.State{
		Phase:   setup.PhaseFailed,
		Outcome: &setup.Outcome{Error: "setup: panic: boom"},
	}}
	st := NewSetupService(trig).Status(context.Background())
	assert.Equal(t, "provisioning failed", st.Outcome.Error)
}

func TestRun_MasksSuccessfulOutcome(t *testing.T) {
	trig := &stateTrigger{state: setup.State{
		Phase:   setup.PhaseCompleted,
		Outcome: &setup.Outcome{Success: true, UserID: "u1", AdminEmail: "admin@printdesk.test", Message: "default admin created"},
	}}
	svc := NewSetupService(trig)

	st, fired, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Empty(t, st.Outcome.UserID)
	assert.Equal(t, "a***@printdesk.test", st.Outcome.AdminEmail)
	assert.Empty(t, st.Outcome.Error)

	_, fired, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, fired)
}
