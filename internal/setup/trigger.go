// Package setup dispara el provisioning del admin una sola vez por proceso
// y guarda el resultado como estado consultable.
//
// El estado sólo sale de "unset" una vez: llamadas posteriores a Fire son
// no-ops aunque la corrida haya fallado. El serving nunca espera al trigger.
package setup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	"github.com/dropDatabas3/printdesk/internal/provision"
)

// Phase es la fase del trigger.
type Phase string

const (
	PhaseUnset     Phase = "unset"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Terminal reporta si la fase es final.
func (p Phase) Terminal() bool { return p == PhaseCompleted || p == PhaseFailed }

// ErrNotFired lo retorna Wait si el trigger nunca se disparó.
var ErrNotFired = errors.New("setup: trigger not fired")

// Outcome es el resultado expuesto a logs, API y CLI.
type Outcome struct {
	Success    bool   `json:"success"`
	UserID     string `json:"userId,omitempty"`
	AdminEmail string `json:"adminEmail,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Step       string `json:"step,omitempty"` // paso que falló
}

// State es un snapshot del trigger.
type State struct {
	Phase      Phase      `json:"phase"`
	Outcome    *Outcome   `json:"outcome,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Runner es lo que el trigger ejecuta (provision.Provisioner en producción).
type Runner interface {
	EnsureDefaultAdmin(ctx context.Context, in provision.Input) (*provision.Result, error)
}

// Config configura el trigger.
type Config struct {
	Input     provision.Input
	Timeout   time.Duration // 0 = sin límite propio
	Notifiers []Notifier
}

// Trigger es el gate one-shot.
type Trigger struct {
	runner Runner
	cfg    Config
	now    func() time.Time

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state State
}

// NewTrigger crea un trigger en fase unset.
func NewTrigger(r Runner, cfg Config) *Trigger {
	return &Trigger{
		runner: r,
		cfg:    cfg,
		now:    time.Now,
		done:   make(chan struct{}),
		state:  State{Phase: PhaseUnset},
	}
}

// Fire arranca la corrida en background si es la primera llamada y retorna
// true en ese caso. No bloquea. La corrida no hereda la cancelación de ctx
// (sí sus valores, p.ej. el logger).
func (t *Trigger) Fire(ctx context.Context) bool {
	fired := false
	t.once.Do(func() {
		fired = true
		started := t.now().UTC()
		t.mu.Lock()
		t.state = State{Phase: PhaseRunning, StartedAt: &started}
		t.mu.Unlock()
		go t.run(context.WithoutCancel(ctx))
	})
	return fired
}

// Run dispara (si hace falta) y espera el resultado.
func (t *Trigger) Run(ctx context.Context) (State, error) {
	t.Fire(ctx)
	return t.Wait(ctx)
}

// Wait espera a que la corrida termine o a que ctx se cancele.
func (t *Trigger) Wait(ctx context.Context) (State, error) {
	if t.State().Phase == PhaseUnset {
		return t.State(), ErrNotFired
	}
	select {
	case <-t.done:
		return t.State(), nil
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

// Done se cierra cuando la corrida terminó (incluidas las notificaciones).
func (t *Trigger) Done() <-chan struct{} { return t.done }

// State retorna una copia del estado actual.
func (t *Trigger) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	if s.Outcome != nil {
		o := *s.Outcome
		s.Outcome = &o
	}
	return s
}

func (t *Trigger) run(ctx context.Context) {
	defer close(t.done)

	log := logger.From(ctx).With(logger.Component("setup"), logger.Op("Trigger.run"))
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	outcome := t.execute(ctx)

	finished := t.now().UTC()
	t.mu.Lock()
	t.state.Outcome = &outcome
	t.state.FinishedAt = &finished
	if outcome.Success {
		t.state.Phase = PhaseCompleted
	} else {
		t.state.Phase = PhaseFailed
	}
	t.mu.Unlock()

	state := t.State()
	if outcome.Success {
		log.Info("admin setup completed", logger.UserID(outcome.UserID), logger.Email(outcome.AdminEmail))
	} else {
		log.Error("admin setup failed", logger.Email(t.cfg.Input.Email), logger.Step(outcome.Step), logger.String("error", outcome.Error))
	}

	for _, n := range t.cfg.Notifiers {
		if err := n.Notify(ctx, state); err != nil {
			log.Warn("setup notifier failed", logger.Err(err))
		}
	}
}

// execute corre el Runner convirtiendo un panic en Outcome fallido.
func (t *Trigger) execute(ctx context.Context) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{Success: false, Error: fmt.Sprintf("setup: panic: %v", rec)}
		}
	}()

	res, err := t.runner.EnsureDefaultAdmin(ctx, t.cfg.Input)
	if err != nil {
		return Outcome{Success: false, Error: err.Error(), Step: string(provision.StepOf(err))}
	}
	msg := "default admin verified"
	if res.Created {
		msg = "default admin created"
	}
	return Outcome{Success: true, UserID: res.UserID, AdminEmail: res.AdminEmail, Message: msg}
}
