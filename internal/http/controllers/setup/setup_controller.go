// Package setup contiene el controller de /v1/setup.
package setup

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/printdesk/internal/http/errors"
	"github.com/dropDatabas3/printdesk/internal/http/helpers"
	svc "github.com/dropDatabas3/printdesk/internal/http/services/setup"
	"github.com/dropDatabas3/printdesk/internal/setup"
)

// SetupController expone el estado del admin por defecto.
type SetupController struct {
	service svc.SetupService
}

// NewSetupController crea el controller.
func NewSetupController(service svc.SetupService) *SetupController {
	return &SetupController{service: service}
}

// Status maneja GET /v1/setup/status.
func (c *SetupController) Status(w http.ResponseWriter, r *http.Request) {
	if !helpers.AllowMethod(w, r, http.MethodGet) {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, c.service.Status(r.Context()))
}

// Run maneja POST /v1/setup/run. 202 mientras corre, 200 si ya terminó.
func (c *SetupController) Run(w http.ResponseWriter, r *http.Request) {
	if !helpers.AllowMethod(w, r, http.MethodPost) {
		return
	}
	st, _, err := c.service.Run(r.Context())
	if errors.Is(err, svc.ErrSetupDisabled) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("setup deshabilitado"))
		return
	}
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}

	status := http.StatusOK
	if st.Phase == string(setup.PhaseRunning) {
		status = http.StatusAccepted
	}
	helpers.WriteJSON(w, status, st)
}
