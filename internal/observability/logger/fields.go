package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }

// ---- Negocio ----

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Email loguea el email enmascarado. No hay helper para el email en claro.
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// Role crea un campo para el rol de perfil.
func Role(v string) zap.Field { return zap.String("role", v) }

// Step crea un campo para el paso de provisioning (lookup, create, ...).
func Step(v string) zap.Field { return zap.String("step", v) }

// Outcome crea un campo para el resultado de una operación (ok, created, repaired, failed).
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// Driver crea un campo para el driver de storage/cache.
func Driver(v string) zap.Field { return zap.String("driver", v) }

// ---- Sistema ----

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (controller, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// ---- Genéricos ----

func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// MaskEmail deja la primera letra del local-part y el dominio: "admin@x.com" -> "a***@x.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
