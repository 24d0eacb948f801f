package auth

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/printdesk/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/printdesk/internal/http/errors"
	"github.com/dropDatabas3/printdesk/internal/http/helpers"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
	svc "github.com/dropDatabas3/printdesk/internal/http/services/auth"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// LoginController maneja /v1/auth/login, /logout y /me.
type LoginController struct {
	service svc.LoginService
}

// NewLoginController crea un nuevo controller de login.
func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Login maneja POST /v1/auth/login.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	if !helpers.AllowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.service.Login(ctx, req)
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		writeLoginError(w, r, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

// Logout maneja POST /v1/auth/logout. Requiere RequireAuth.
func (c *LoginController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Logout"))

	if !helpers.AllowMethod(w, r, http.MethodPost) {
		return
	}
	p, ok := mw.GetPrincipal(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	if err := c.service.Logout(ctx, p.SessionID); err != nil {
		log.Warn("logout failed", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me maneja GET /v1/auth/me. Requiere RequireAuth.
func (c *LoginController) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !helpers.AllowMethod(w, r, http.MethodGet) {
		return
	}
	p, ok := mw.GetPrincipal(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	me, err := c.service.Me(ctx, p.UserID)
	if errors.Is(err, svc.ErrProfileNotFound) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("el usuario no tiene perfil"))
		return
	}
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, me)
}

func writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email y password son obligatorios"))
	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrEmailNotConfirmed):
		httperrors.WriteError(w, httperrors.ErrAccountNotVerified)
	default:
		httperrors.WriteErrorCtx(w, r, err)
	}
}
