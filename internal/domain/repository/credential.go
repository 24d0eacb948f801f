package repository

import (
	"context"
	"time"
)

// Credential es la identidad de login que conoce el credential store.
type Credential struct {
	ID             string
	Email          string
	PasswordHash   string // vacío en drivers remotos (el hash no sale del proveedor)
	EmailConfirmed bool
	FullName       string
	CreatedAt      time.Time
}

// CreateCredentialInput contiene los datos para crear una credencial.
type CreateCredentialInput struct {
	Email    string
	Password string // plano; el driver decide cómo hashearlo
	FullName string
	// EmailConfirmed crea la credencial ya confirmada (sin round-trip de verificación).
	EmailConfirmed bool
}

// CredentialStore abstrae la interfaz administrativa del proveedor de autenticación.
type CredentialStore interface {
	// FindByEmail busca una credencial por email (case-insensitive).
	// Retorna ErrNotFound si no existe.
	FindByEmail(ctx context.Context, email string) (*Credential, error)

	// Create crea una credencial.
	// Retorna ErrConflict si el email ya está registrado.
	Create(ctx context.Context, in CreateCredentialInput) (*Credential, error)

	// UpdatePassword fuerza el password de una credencial.
	// Retorna ErrNotFound si el id no existe.
	UpdatePassword(ctx context.Context, id, password string) error

	// ConfirmEmail marca el email de la credencial como confirmado.
	ConfirmEmail(ctx context.Context, id string) error

	// SignIn abre una sesión.
	// Retorna ErrInvalidCredentials o ErrEmailNotConfirmed.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut cierra la sesión. Cerrar una sesión ya cerrada no es error.
	SignOut(ctx context.Context, s *Session) error

	// ActiveSessions cuenta las sesiones abiertas de un usuario.
	// Los drivers que no pueden observarlo retornan ErrNotImplemented.
	ActiveSessions(ctx context.Context, userID string) (int, error)
}
