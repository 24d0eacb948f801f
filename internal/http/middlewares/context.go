package middlewares

import (
	"context"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxPrincipalKey ctxKey = "principal"
	ctxRequestIDKey ctxKey = "request_id"
	ctxClientIPKey  ctxKey = "client_ip"
)

// Principal es el usuario autenticado del request.
// Role solo se completa detrás de RequireAdmin.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Role      repository.Role
}

// =================================================================================
// SETTERS
// =================================================================================

// WithClaims inyecta claims en el contexto
func WithClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// WithPrincipal inyecta el usuario autenticado en el contexto
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

// =================================================================================
// GETTERS
// =================================================================================

// GetClaims obtiene las claims JWT del contexto (nil si no pasó por RequireAuth).
func GetClaims(ctx context.Context) map[string]any {
	if m, ok := ctx.Value(ctxClaimsKey).(map[string]any); ok {
		return m
	}
	return nil
}

// GetPrincipal obtiene el usuario autenticado.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipalKey).(Principal)
	return p, ok
}

// GetUserID obtiene el user ID del contexto, o "" si no hay.
func GetUserID(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return p.UserID
}

// GetRequestID obtiene el request ID del contexto, o "".
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

// GetClientIP obtiene la IP resuelta por WithClientIP, o "".
func GetClientIP(ctx context.Context) string {
	if s, ok := ctx.Value(ctxClientIPKey).(string); ok {
		return s
	}
	return ""
}

// ClaimString extrae un string de las claims.
func ClaimString(claims map[string]any, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
