package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/printdesk/internal/http/controllers/auth"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/rate"
)

// AuthRouterDeps contiene las dependencias para el router de auth.
type AuthRouterDeps struct {
	Controllers  *ctrl.Controllers
	Issuer       *jwtx.Issuer
	Sessions     mw.SessionValidator
	LoginLimiter rate.Limiter
}

// RegisterAuthRoutes registra /v1/auth. Login es público con rate limit por ip+email.
func RegisterAuthRoutes(r chi.Router, deps AuthRouterDeps) {
	c := deps.Controllers

	r.Route("/auth", func(r chi.Router) {
		r.With(mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: deps.LoginLimiter,
			KeyFunc: mw.LoginRateKey,
		})).Post("/login", c.Login.Login)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(deps.Issuer, deps.Sessions))
			r.Post("/logout", c.Login.Logout)
			r.Get("/me", c.Login.Me)
		})
	})
}
