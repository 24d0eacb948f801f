package middlewares

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/printdesk/internal/http/errors"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// ErrSessionInactive: la sesión del token fue cerrada o expiró.
var ErrSessionInactive = stderrors.New("session inactive")

// SessionValidator confirma que la sesión (sid) de un token sigue abierta.
// Debe retornar ErrSessionInactive si fue cerrada.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID, userID string) error
}

const bearerChallenge = `Bearer realm="printdesk", error="invalid_token"`

// RequireAuth valida Authorization: Bearer <JWT>, chequea que la sesión siga abierta
// y guarda claims y Principal en el contexto.
func RequireAuth(issuer *jwtx.Issuer, sessions SessionValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(ah) < len("bearer ") || !strings.EqualFold(ah[:len("bearer ")], "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="printdesk"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("bearer "):])

			claims, err := issuer.Parse(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", bearerChallenge)
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			p := Principal{
				UserID:    ClaimString(claims, "sub"),
				SessionID: ClaimString(claims, "sid"),
				Email:     ClaimString(claims, "email"),
			}
			if p.UserID == "" || p.SessionID == "" {
				w.Header().Set("WWW-Authenticate", bearerChallenge)
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail("faltan sub o sid"))
				return
			}

			if sessions != nil {
				if err := sessions.ValidateSession(r.Context(), p.SessionID, p.UserID); err != nil {
					if stderrors.Is(err, ErrSessionInactive) {
						w.Header().Set("WWW-Authenticate", bearerChallenge)
						errors.WriteError(w, errors.ErrSessionExpired)
						return
					}
					errors.WriteErrorCtx(w, r, err)
					return
				}
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = WithPrincipal(ctx, p)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(p.UserID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
