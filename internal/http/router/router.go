// Package router arma el árbol de rutas (chi) inyectando controllers y middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/printdesk/internal/http/controllers"
	httperrors "github.com/dropDatabas3/printdesk/internal/http/errors"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/metrics"
	"github.com/dropDatabas3/printdesk/internal/rate"
)

// Deps contiene todo lo que necesitan las rutas.
type Deps struct {
	Controllers *controllers.Controllers

	Issuer   *jwtx.Issuer
	Sessions mw.SessionValidator
	Roles    mw.RoleResolver

	LoginLimiter rate.Limiter // nil = sin rate limit
	SetupLimiter rate.Limiter // nil = sin rate limit

	CORSOrigins    []string
	TrustedProxies []string      // IPs/CIDRs cuyo X-Forwarded-For se respeta
	HTTPMetrics    *metrics.HTTP // nil = sin métricas por request
	MetricsHandler http.Handler  // nil = sin /metrics
}

// New crea el handler raíz.
//
// Orden global: recover → request id → client ip → metrics → security headers → cors.
// Health y /metrics no pasan por logging (muy frecuentes).
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(d.TrustedProxies),
		mw.WithMetrics(d.HTTPMetrics),
		mw.WithSecurityHeaders(),
	)
	if len(d.CORSOrigins) > 0 {
		r.Use(mw.WithCORS(d.CORSOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	RegisterHealthRoutes(r, HealthRouterDeps{
		Controllers:    d.Controllers.Health,
		MetricsHandler: d.MetricsHandler,
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.WithLogging(), mw.WithNoStore())

		RegisterAuthRoutes(r, AuthRouterDeps{
			Controllers:  d.Controllers.Auth,
			Issuer:       d.Issuer,
			Sessions:     d.Sessions,
			LoginLimiter: d.LoginLimiter,
		})
		RegisterAdminRoutes(r, AdminRouterDeps{
			Controllers: d.Controllers.Admin,
			Issuer:      d.Issuer,
			Sessions:    d.Sessions,
			Roles:       d.Roles,
		})
		RegisterSetupRoutes(r, SetupRouterDeps{
			Controllers:  d.Controllers.Setup,
			SetupLimiter: d.SetupLimiter,
		})
	})

	return r
}
