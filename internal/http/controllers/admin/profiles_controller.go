package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/printdesk/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/printdesk/internal/http/errors"
	"github.com/dropDatabas3/printdesk/internal/http/helpers"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	svc "github.com/dropDatabas3/printdesk/internal/http/services/admin"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// ProfilesController maneja /v1/admin/profiles.
type ProfilesController struct {
	service svc.ProfilesService
}

// NewProfilesController crea el controller de roles.
func NewProfilesController(service svc.ProfilesService) *ProfilesController {
	return &ProfilesController{service: service}
}

// List maneja GET /v1/admin/profiles.
func (c *ProfilesController) List(w http.ResponseWriter, r *http.Request) {
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

// UpdateRole maneja PUT /v1/admin/profiles/{id}/role.
func (c *ProfilesController) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ProfilesController.UpdateRole"))

	if !helpers.AllowMethod(w, r, http.MethodPut) {
		return
	}
	var req dto.UpdateRoleRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	p, _ := mw.GetPrincipal(ctx)
	out, err := c.service.UpdateRole(ctx, p.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		log.Debug("update role failed", logger.Err(err))
		switch {
		case errors.Is(err, svc.ErrMissingProfileID):
			httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("falta el id del perfil"))
		case errors.Is(err, svc.ErrInvalidRole):
			httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail("role debe ser admin o staff"))
		case errors.Is(err, svc.ErrSelfDemotion):
			httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("no puede quitarse el rol admin a sí mismo"))
		case errors.Is(err, svc.ErrProfileNotFound):
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("perfil no encontrado"))
		default:
			httperrors.WriteErrorCtx(w, r, err)
		}
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
