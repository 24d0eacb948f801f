package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/http/errors"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// RoleResolver obtiene el rol de perfil de un usuario.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (repository.Role, error)
}

// RequireAdmin exige un Principal con rol admin. Usar después de RequireAuth.
// Un usuario sin perfil es 403, no 404.
func RequireAdmin(roles RoleResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			role, err := roles.RoleOf(r.Context(), p.UserID)
			if err != nil && !repository.IsNotFound(err) {
				errors.WriteErrorCtx(w, r, err)
				return
			}
			if role != repository.RoleAdmin {
				logger.From(r.Context()).Debug("admin access denied", logger.Role(string(role)))
				errors.WriteError(w, errors.ErrForbidden)
				return
			}

			p.Role = role
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
