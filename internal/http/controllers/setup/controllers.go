package setup

import svc "github.com/dropDatabas3/printdesk/internal/http/services/setup"

// Controllers agrupa los controllers del dominio setup.
type Controllers struct {
	Setup *SetupController
}

// NewControllers crea el agregador de controllers setup.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Setup: NewSetupController(s.Setup)}
}
