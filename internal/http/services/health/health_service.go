// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/printdesk/internal/http/dto/health"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	"github.com/dropDatabas3/printdesk/internal/setup"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// SetupState abstrae el trigger del admin por defecto.
type SetupState interface {
	State() setup.State
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	StorageDriver string
	StorageCheck  func(ctx context.Context) error // crítico
	CacheDriver   string
	CacheCheck    func(ctx context.Context) error // no crítico
	Setup         SetupState                      // nil = setup deshabilitado
	Version       string
	CheckTimeout  time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.CheckTimeout <= 0 {
		deps.CheckTimeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

const (
	statusOK       = "ok"
	statusError    = "error"
	statusDisabled = "disabled"
)

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("health"),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus, 3),
		Version:    s.deps.Version,
		Timestamp:  time.Now().UTC(),
	}
	hasErrors := false
	hasCriticalErrors := false

	// 1) Storage (crítico)
	if s.deps.StorageCheck == nil {
		response.Components["storage"] = dto.HealthStatus{Status: statusError, Message: "storage not initialized"}
		hasCriticalErrors = true
	} else if err := s.ping(ctx, s.deps.StorageCheck); err != nil {
		response.Components["storage"] = dto.HealthStatus{
			Status:  statusError,
			Message: fmt.Sprintf("%s unavailable", s.deps.StorageDriver),
		}
		hasCriticalErrors = true
		log.Error("storage unavailable", logger.Driver(s.deps.StorageDriver), logger.Err(err))
	} else {
		response.Components["storage"] = dto.HealthStatus{Status: statusOK, Message: s.deps.StorageDriver}
	}

	// 2) Cache (no crítico: sesiones nuevas fallan pero el resto sirve)
	if s.deps.CacheCheck == nil {
		response.Components["cache"] = dto.HealthStatus{Status: statusDisabled}
	} else if err := s.ping(ctx, s.deps.CacheCheck); err != nil {
		response.Components["cache"] = dto.HealthStatus{
			Status:  statusError,
			Message: fmt.Sprintf("%s unavailable", s.deps.CacheDriver),
		}
		hasErrors = true
		log.Error("cache unavailable", logger.Driver(s.deps.CacheDriver), logger.Err(err))
	} else {
		response.Components["cache"] = dto.HealthStatus{Status: statusOK, Message: s.deps.CacheDriver}
	}

	// 3) Setup del admin (un fallo degrada, no saca de rotación)
	if s.deps.Setup == nil {
		response.Components["setup"] = dto.HealthStatus{Status: statusDisabled}
	} else {
		st := s.deps.Setup.State()
		switch st.Phase {
		case setup.PhaseFailed:
			response.Components["setup"] = dto.HealthStatus{Status: statusError, Message: "default admin setup failed"}
			hasErrors = true
		default:
			response.Components["setup"] = dto.HealthStatus{Status: statusOK, Message: string(st.Phase)}
		}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}

func (s *healthService) ping(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.CheckTimeout)
	defer cancel()
	return check(ctx)
}
