package health

// Services agrupa los services del dominio health.
type Services struct {
	Health HealthService
}

// NewServices crea el agregador de health.
func NewServices(d Deps) Services {
	return Services{Health: NewHealthService(d)}
}
