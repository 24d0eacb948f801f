package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/printdesk/internal/http/controllers/setup"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	"github.com/dropDatabas3/printdesk/internal/rate"
)

// SetupRouterDeps contiene las dependencias para el router de setup.
type SetupRouterDeps struct {
	Controllers  *ctrl.Controllers
	SetupLimiter rate.Limiter
}

// RegisterSetupRoutes registra /v1/setup. Públicos: antes del primer admin
// no hay nadie que pueda autenticarse. Run es one-shot e idempotente.
func RegisterSetupRoutes(r chi.Router, deps SetupRouterDeps) {
	c := deps.Controllers

	r.Route("/setup", func(r chi.Router) {
		r.Get("/status", c.Setup.Status)
		r.With(mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: deps.SetupLimiter,
			KeyFunc: mw.IPRateKey,
		})).Post("/run", c.Setup.Run)
	})
}
