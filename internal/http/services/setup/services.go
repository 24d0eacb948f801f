package setup

// Services agrupa los services del dominio setup.
type Services struct {
	Setup SetupService
}

// NewServices crea el agregador. trigger puede ser nil.
func NewServices(trigger Trigger) Services {
	return Services{Setup: NewSetupService(trigger)}
}
