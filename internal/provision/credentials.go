package provision

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

// signOutTimeout acota el cierre de la sesión de auto-test cuando el
// contexto del caller ya fue cancelado.
const signOutTimeout = 5 * time.Second

// CredentialAccessor envuelve el store de credenciales y traduce sus errores
// a la taxonomía del paquete.
type CredentialAccessor struct {
	store repository.CredentialStore
}

// NewCredentialAccessor crea un accessor sobre s.
func NewCredentialAccessor(s repository.CredentialStore) *CredentialAccessor {
	return &CredentialAccessor{store: s}
}

// FindByEmail retorna (nil, false, nil) si no existe.
func (a *CredentialAccessor) FindByEmail(ctx context.Context, email string) (*repository.Credential, bool, error) {
	c, err := a.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return c, true, nil
	case repository.IsNotFound(err):
		return nil, false, nil
	default:
		return nil, false, &LookupError{Target: "credential", Err: err}
	}
}

// Create crea la credencial con el email ya confirmado.
func (a *CredentialAccessor) Create(ctx context.Context, email, password, fullName string) (*repository.Credential, error) {
	c, err := a.store.Create(ctx, repository.CreateCredentialInput{
		Email:          email,
		Password:       password,
		FullName:       fullName,
		EmailConfirmed: true,
	})
	if err != nil {
		return nil, &CreationError{Email: masked(email), Duplicate: repository.IsConflict(err), Err: err}
	}
	return c, nil
}

func (a *CredentialAccessor) UpdatePassword(ctx context.Context, id, password string) error {
	if err := a.store.UpdatePassword(ctx, id, password); err != nil {
		return &UpdateError{UserID: id, Field: "password", Err: err}
	}
	return nil
}

func (a *CredentialAccessor) ConfirmEmail(ctx context.Context, id string) error {
	if err := a.store.ConfirmEmail(ctx, id); err != nil {
		return &UpdateError{UserID: id, Field: "email_confirmed", Err: err}
	}
	return nil
}

// VerifyLogin hace sign-in y cierra la sesión antes de retornar, en todos
// los caminos. Si el cierre falla, el resultado es un error aunque el
// login haya funcionado: una sesión abierta es una fuga.
func (a *CredentialAccessor) VerifyLogin(ctx context.Context, email, password string) (cred *repository.Credential, err error) {
	sess, err := a.store.SignIn(ctx, email, password)
	if err != nil {
		return nil, &AuthError{Email: masked(email), Err: err}
	}

	defer func() {
		octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signOutTimeout)
		defer cancel()
		if serr := a.store.SignOut(octx, sess); serr != nil {
			cred = nil
			err = errors.Join(err, &AuthError{Email: masked(email), Err: serr})
		}
	}()

	return &repository.Credential{
		ID:             sess.UserID,
		Email:          strings.ToLower(sess.Email),
		EmailConfirmed: true,
	}, nil
}
