// Package controllers agrupa los controllers HTTP. Es el "composition root" de
// controllers: services.New → controllers.New → router.New.
package controllers

import (
	"github.com/dropDatabas3/printdesk/internal/http/controllers/admin"
	"github.com/dropDatabas3/printdesk/internal/http/controllers/auth"
	"github.com/dropDatabas3/printdesk/internal/http/controllers/health"
	"github.com/dropDatabas3/printdesk/internal/http/controllers/setup"
	"github.com/dropDatabas3/printdesk/internal/http/services"
)

// Controllers agrupa los controllers de todos los dominios.
type Controllers struct {
	Auth   *auth.Controllers
	Admin  *admin.Controllers
	Setup  *setup.Controllers
	Health *health.Controllers
}

// New crea todos los controllers a partir de los services.
func New(s services.Services) *Controllers {
	return &Controllers{
		Auth:   auth.NewControllers(s.Auth),
		Admin:  admin.NewControllers(s.Admin),
		Setup:  setup.NewControllers(s.Setup),
		Health: health.NewControllers(s.Health),
	}
}
