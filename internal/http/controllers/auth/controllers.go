// Package auth contiene los controllers de /v1/auth.
package auth

import svc "github.com/dropDatabas3/printdesk/internal/http/services/auth"

// Controllers agrupa los controllers del dominio auth.
type Controllers struct {
	Login *LoginController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Login: NewLoginController(s.Login),
	}
}
