// Package setup expone el trigger del admin por defecto a la API.
package setup

import (
	"context"
	"errors"

	dto "github.com/dropDatabas3/printdesk/internal/http/dto/setup"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	"github.com/dropDatabas3/printdesk/internal/setup"
)

// ErrSetupDisabled: no hay trigger configurado (setup.enabled=false).
var ErrSetupDisabled = errors.New("setup disabled")

// Trigger es la parte de *setup.Trigger que usa el service.
type Trigger interface {
	Fire(ctx context.Context) bool
	State() setup.State
}

// SetupService consulta y dispara el provisioning.
type SetupService interface {
	Status(ctx context.Context) dto.StatusResponse
	// Run dispara el trigger si nunca corrió. fired=false si ya estaba disparado.
	Run(ctx context.Context) (resp dto.StatusResponse, fired bool, err error)
}

type setupService struct {
	trigger Trigger
}

// NewSetupService crea el service. trigger nil = setup deshabilitado.
func NewSetupService(trigger Trigger) SetupService {
	return &setupService{trigger: trigger}
}

func (s *setupService) Status(_ context.Context) dto.StatusResponse {
	if s.trigger == nil {
		return dto.StatusResponse{Enabled: false, Phase: string(setup.PhaseUnset)}
	}
	return toStatus(s.trigger.State())
}

func (s *setupService) Run(ctx context.Context) (dto.StatusResponse, bool, error) {
	if s.trigger == nil {
		return s.Status(ctx), false, ErrSetupDisabled
	}
	fired := s.trigger.Fire(ctx)
	if fired {
		logger.From(ctx).Info("admin setup fired from api", logger.Component("setup"))
	}
	return toStatus(s.trigger.State()), fired, nil
}

// publicError reemplaza el error crudo (puede traer hosts o respuestas del
// backend); el detalle completo queda en los logs del trigger.
func publicError(step string) string {
	if step == "" {
		return "provisioning failed"
	}
	return "provisioning failed at step " + step
}

// toStatus arma la vista pública: el endpoint no requiere auth, así que el
// email del admin sale enmascarado, sin user id y sin el error crudo.
func toStatus(st setup.State) dto.StatusResponse {
	out := dto.StatusResponse{
		Enabled:    true,
		Phase:      string(st.Phase),
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
	}
	if st.Outcome != nil {
		o := *st.Outcome
		o.UserID = ""
		o.AdminEmail = logger.MaskEmail(o.AdminEmail)
		if !o.Success {
			o.Error = publicError(o.Step)
		}
		out.Outcome = &o
	}
	return out
}
