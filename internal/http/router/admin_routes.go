package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/printdesk/internal/http/controllers/admin"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
)

// AdminRouterDeps contiene las dependencias para el router admin.
type AdminRouterDeps struct {
	Controllers *ctrl.Controllers
	Issuer      *jwtx.Issuer
	Sessions    mw.SessionValidator
	Roles       mw.RoleResolver
}

// RegisterAdminRoutes registra /v1/admin. Todo requiere sesión con rol admin.
func RegisterAdminRoutes(r chi.Router, deps AdminRouterDeps) {
	c := deps.Controllers

	r.Route("/admin", func(r chi.Router) {
		r.Use(
			mw.RequireAuth(deps.Issuer, deps.Sessions),
			mw.RequireAdmin(deps.Roles),
		)

		r.Get("/profiles", c.Profiles.List)
		r.Put("/profiles/{id}/role", c.Profiles.UpdateRole)

		r.Get("/staff", c.Staff.List)
		r.Post("/staff", c.Staff.Create)
	})
}
