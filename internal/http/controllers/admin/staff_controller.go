package admin

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/printdesk/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/printdesk/internal/http/errors"
	"github.com/dropDatabas3/printdesk/internal/http/helpers"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	svc "github.com/dropDatabas3/printdesk/internal/http/services/admin"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// StaffController maneja /v1/admin/staff.
type StaffController struct {
	service svc.StaffService
}

// NewStaffController crea el controller de staff.
func NewStaffController(service svc.StaffService) *StaffController {
	return &StaffController{service: service}
}

// List maneja GET /v1/admin/staff.
func (c *StaffController) List(w http.ResponseWriter, r *http.Request) {
	if !helpers.AllowMethod(w, r, http.MethodGet) {
		return
	}
	out, err := c.service.List(r.Context())
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Create maneja POST /v1/admin/staff.
func (c *StaffController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StaffController.Create"))

	if !helpers.AllowMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.CreateStaffRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	p, _ := mw.GetPrincipal(ctx)
	out, err := c.service.Create(ctx, p.UserID, req)
	if err != nil {
		log.Debug("create staff failed", logger.Err(err))
		switch {
		case errors.Is(err, svc.ErrMissingFields):
			httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("full_name y email son obligatorios"))
		case errors.Is(err, svc.ErrInvalidEmail):
			httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail("email inválido"))
		case errors.Is(err, svc.ErrInvalidStaffRole):
			httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail("role debe ser staff, manager, cleaner o designer"))
		case errors.Is(err, svc.ErrStaffEmailTaken):
			httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse)
		default:
			httperrors.WriteErrorCtx(w, r, err)
		}
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, out)
}
