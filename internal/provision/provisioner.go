package provision

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// Options activa los pasos opcionales del pipeline.
type Options struct {
	// RepairPassword hace un login de prueba sobre cuentas existentes y
	// fuerza el password esperado si no coincide.
	RepairPassword bool
	// FinalCheck hace un login de verificación al final de la corrida.
	FinalCheck bool
}

// DefaultOptions activa ambos pasos.
func DefaultOptions() Options {
	return Options{RepairPassword: true, FinalCheck: true}
}

// Input son los datos fijos del admin (vienen de config, nunca de un request).
type Input struct {
	Email    string
	Password string
	FullName string
}

// Result describe qué hizo una corrida exitosa.
type Result struct {
	UserID     string
	AdminEmail string

	Created          bool // la credencial se creó en esta corrida
	PasswordRepaired bool
	EmailConfirmed   bool // el email estaba sin confirmar y se confirmó
	ProfileChanged   bool // el perfil no existía o tenía drift
}

// Deps contiene las dependencias del Provisioner.
type Deps struct {
	Credentials repository.CredentialStore
	Profiles    repository.ProfileRepository
	Metrics     *Metrics // opcional
}

// Provisioner ejecuta EnsureDefaultAdmin.
type Provisioner struct {
	creds    *CredentialAccessor
	profiles *ProfileReconciler
	metrics  *Metrics
	opts     Options

	group singleflight.Group
}

// New crea un Provisioner.
func New(deps Deps, opts Options) *Provisioner {
	return &Provisioner{
		creds:    NewCredentialAccessor(deps.Credentials),
		profiles: NewProfileReconciler(deps.Profiles),
		metrics:  deps.Metrics,
		opts:     opts,
	}
}

// EnsureDefaultAdmin garantiza que exista exactamente una credencial
// confirmada para in.Email y un perfil con rol admin bajo el mismo id.
//
// Llamadas concurrentes en el mismo proceso para el mismo email comparten
// una sola corrida. Si ctx se cancela el caller retorna StepWait y la corrida
// sigue para los demás. Todo error retornado es un *ProvisionError.
func (p *Provisioner) EnsureDefaultAdmin(ctx context.Context, in Input) (*Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.Password == "" {
		return nil, &ProvisionError{Step: StepValidate, Err: ErrInvalidInput}
	}

	// La corrida compartida conserva el deadline del primer caller pero no su
	// cancelación; cada caller deja de esperar con su propio ctx.
	ch := p.group.DoChan(in.Email, func() (any, error) {
		rctx, cancel := detach(ctx)
		defer cancel()
		return p.run(rctx, in)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*Result)
		return &res, nil
	case <-ctx.Done():
		return nil, &ProvisionError{Step: StepWait, Err: ctx.Err()}
	}
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	d := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(d, dl)
	}
	return context.WithCancel(d)
}

func (p *Provisioner) run(ctx context.Context, in Input) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("provision"),
		logger.Op("EnsureDefaultAdmin"),
		logger.Email(in.Email),
	)

	res := &Result{AdminEmail: in.Email}
	fail := func(step Step, err error) (*Result, error) {
		p.metrics.run("failed")
		log.Error("provisioning failed", logger.Step(string(step)), logger.Err(err))
		return nil, &ProvisionError{Step: step, Err: err}
	}

	// 1. lookup
	start := time.Now()
	cred, found, err := p.creds.FindByEmail(ctx, in.Email)
	p.metrics.observeStep(StepLookup, start)
	if err != nil {
		return fail(StepLookup, err)
	}

	// 2. create-or-recover
	if !found {
		start = time.Now()
		cred, err = p.creds.Create(ctx, in.Email, in.Password, in.FullName)
		if err != nil {
			var ce *CreationError
			if !errors.As(err, &ce) || !ce.Duplicate {
				p.metrics.observeStep(StepCreate, start)
				return fail(StepCreate, err)
			}
			log.Info("credential created concurrently, re-reading")
			var lerr error
			cred, found, lerr = p.creds.FindByEmail(ctx, in.Email)
			if lerr != nil {
				p.metrics.observeStep(StepCreate, start)
				return fail(StepCreate, lerr)
			}
			if !found {
				p.metrics.observeStep(StepCreate, start)
				return fail(StepCreate, err)
			}
		} else {
			res.Created = true
			log.Info("credential created", logger.UserID(cred.ID))
		}
		p.metrics.observeStep(StepCreate, start)
	}
	res.UserID = cred.ID
	log = log.With(logger.UserID(cred.ID))

	// 3. repair (sólo cuentas pre-existentes)
	if !res.Created {
		if !cred.EmailConfirmed {
			start = time.Now()
			err := p.creds.ConfirmEmail(ctx, cred.ID)
			p.metrics.observeStep(StepConfirmEmail, start)
			if err != nil {
				return fail(StepConfirmEmail, err)
			}
			res.EmailConfirmed = true
			p.metrics.repair("email_confirmed")
			log.Warn("admin email was unconfirmed, confirmed")
		}

		if p.opts.RepairPassword {
			start = time.Now()
			repaired, err := p.repairPassword(ctx, cred.ID, in)
			p.metrics.observeStep(StepRepairPassword, start)
			if err != nil {
				return fail(StepRepairPassword, err)
			}
			if repaired {
				res.PasswordRepaired = true
				p.metrics.repair("password")
				log.Warn("admin password drifted, reset to configured value")
			}
		}
	}

	// 4. reconcile profile
	start = time.Now()
	changed, err := p.reconcileProfile(ctx, log, cred.ID, in)
	p.metrics.observeStep(StepReconcileProfile, start)
	if err != nil {
		return fail(StepReconcileProfile, err)
	}
	res.ProfileChanged = changed
	if changed {
		p.metrics.repair("profile")
	}

	// 5. verify
	if p.opts.FinalCheck {
		start = time.Now()
		got, err := p.creds.VerifyLogin(ctx, in.Email, in.Password)
		p.metrics.observeStep(StepVerify, start)
		if err != nil {
			return fail(StepVerify, err)
		}
		if got.ID != "" && got.ID != cred.ID {
			return fail(StepVerify, &AuthError{Email: masked(in.Email), Err: errors.New("session belongs to a different user")})
		}
	}

	outcome := "reconciled"
	if res.Created {
		outcome = "created"
	}
	p.metrics.run(outcome)
	log.Info("default admin ensured",
		logger.Outcome(outcome),
		logger.Bool("password_repaired", res.PasswordRepaired),
		logger.Bool("email_confirmed", res.EmailConfirmed),
		logger.Bool("profile_changed", res.ProfileChanged),
	)
	return res, nil
}

// repairPassword prueba el login con el password esperado y lo fuerza si
// el store responde credenciales inválidas. Cualquier otro fallo es terminal.
func (p *Provisioner) repairPassword(ctx context.Context, userID string, in Input) (bool, error) {
	_, err := p.creds.VerifyLogin(ctx, in.Email, in.Password)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrInvalidCredentials) {
		return false, err
	}
	if err := p.creds.UpdatePassword(ctx, userID, in.Password); err != nil {
		return false, err
	}
	return true, nil
}

// reconcileProfile lee el perfil sólo para reportar drift; el upsert es incondicional.
func (p *Provisioner) reconcileProfile(ctx context.Context, log *zap.Logger, userID string, in Input) (bool, error) {
	want := repository.Profile{
		ID:       userID,
		Email:    in.Email,
		FullName: in.FullName,
		Role:     repository.RoleAdmin,
	}

	current, found, err := p.profiles.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	changed := !found || drifted(current, want)
	if found && changed {
		log.Warn("admin profile drifted",
			logger.Role(string(current.Role)),
			logger.Bool("email_changed", current.Email != want.Email),
			logger.Bool("name_changed", current.FullName != want.FullName),
		)
	}

	if err := p.profiles.Upsert(ctx, want); err != nil {
		return false, err
	}
	return changed, nil
}
