// Package auth contiene los services de sesión del panel (login, logout, me).
package auth

import (
	"time"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
)

// Deps contiene las dependencias para crear los services auth.
type Deps struct {
	Credentials  repository.CredentialStore
	Profiles     repository.ProfileRepository
	Cache        cache.Client
	Issuer       *jwtx.Issuer
	SessionTTL   time.Duration
	RoleCacheTTL time.Duration
}

// Services agrupa los services del dominio auth.
// Sessions y Roles también los usan los middlewares.
type Services struct {
	Login    LoginService
	Sessions *SessionCache
	Roles    *RoleCache
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	sessions := NewSessionCache(d.Cache, d.SessionTTL)
	roles := NewRoleCache(d.Profiles, d.Cache, d.RoleCacheTTL)
	return Services{
		Login: NewLoginService(LoginDeps{
			Credentials: d.Credentials,
			Profiles:    d.Profiles,
			Issuer:      d.Issuer,
			Sessions:    sessions,
			Roles:       roles,
		}),
		Sessions: sessions,
		Roles:    roles,
	}
}
