package provision

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// Step identifica un paso del pipeline.
type Step string

const (
	StepValidate         Step = "validate"
	StepLookup           Step = "lookup"
	StepCreate           Step = "create"
	StepConfirmEmail     Step = "confirm_email"
	StepRepairPassword   Step = "repair_password"
	StepReconcileProfile Step = "reconcile_profile"
	StepVerify           Step = "verify"

	// StepWait: el caller dejó de esperar una corrida compartida.
	StepWait Step = "wait"
)

// ErrInvalidInput indica email o password vacíos.
var ErrInvalidInput = errors.New("provision: email and password are required")

// LookupError es un fallo de transporte/proveedor al consultar existencia.
// "No encontrado" no es un LookupError.
type LookupError struct {
	Target string // "credential" | "profile"
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Target, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// CreationError es un rechazo al crear la credencial.
// Duplicate=true es el caso "ya existe" que el Provisioner recupera.
type CreationError struct {
	Email     string // enmascarado
	Duplicate bool
	Err       error
}

func (e *CreationError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("create credential %s: already exists: %v", e.Email, e.Err)
	}
	return fmt.Sprintf("create credential %s: %v", e.Email, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// UpdateError es un rechazo al escribir un campo de la credencial.
type UpdateError struct {
	UserID string
	Field  string // "password" | "email_confirmed"
	Err    error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update %s for user %s: %v", e.Field, e.UserID, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// PersistenceError es un rechazo al escribir el perfil.
type PersistenceError struct {
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist profile %s: %v", e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AuthError es un fallo del login de auto-test (o de su sign-out).
type AuthError struct {
	Email string // enmascarado
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("self-test login %s: %v", e.Email, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProvisionError es el único tipo de error que sale del Provisioner.
type ProvisionError struct {
	Step Step
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision: step %s: %v", e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// StepOf retorna el paso que falló, o "" si err no es un ProvisionError.
func StepOf(err error) Step {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe.Step
	}
	return ""
}

func masked(email string) string { return logger.MaskEmail(email) }
