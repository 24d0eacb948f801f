// Package services agrupa los services HTTP. Es el "composition root" de services:
// cada dominio vive en services/{dominio} con su Deps y su aggregator Services.
//
//	svcs := services.New(services.Deps{...})
//	// svcs.Auth.Login, svcs.Admin.Staff, svcs.Setup.Setup, svcs.Health.Health
package services

import (
	"time"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/http/services/admin"
	"github.com/dropDatabas3/printdesk/internal/http/services/auth"
	"github.com/dropDatabas3/printdesk/internal/http/services/health"
	"github.com/dropDatabas3/printdesk/internal/http/services/setup"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	store "github.com/dropDatabas3/printdesk/internal/store"
)

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	// ─── Infraestructura ───
	Store  store.Connection
	Cache  cache.Client
	Issuer *jwtx.Issuer

	// ─── Auth ───
	SessionTTL   time.Duration
	RoleCacheTTL time.Duration

	// ─── Setup ───
	Trigger SetupTrigger // nil = setup deshabilitado

	Version string
}

// SetupTrigger combina lo que necesitan setup y health del trigger.
type SetupTrigger interface {
	setup.Trigger
	health.SetupState
}

// Services agrupa los services de todos los dominios.
type Services struct {
	Auth   auth.Services
	Admin  admin.Services
	Setup  setup.Services
	Health health.Services
}

// New crea todos los services.
func New(d Deps) Services {
	authSvcs := auth.NewServices(auth.Deps{
		Credentials:  d.Store.Credentials(),
		Profiles:     d.Store.Profiles(),
		Cache:        d.Cache,
		Issuer:       d.Issuer,
		SessionTTL:   d.SessionTTL,
		RoleCacheTTL: d.RoleCacheTTL,
	})

	hd := health.Deps{
		StorageDriver: d.Store.Name(),
		StorageCheck:  d.Store.Ping,
		Version:       d.Version,
	}
	if d.Cache != nil {
		hd.CacheDriver = d.Cache.Driver()
		hd.CacheCheck = d.Cache.Ping
	}

	var trig setup.Trigger
	if d.Trigger != nil {
		trig = d.Trigger
		hd.Setup = d.Trigger
	}

	return Services{
		Auth: authSvcs,
		Admin: admin.NewServices(admin.Deps{
			Profiles: d.Store.Profiles(),
			Staff:    d.Store.Staff(),
			Roles:    authSvcs.Roles,
		}),
		Setup:  setup.NewServices(trig),
		Health: health.NewServices(hd),
	}
}
