package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	dto "github.com/dropDatabas3/printdesk/internal/http/dto/auth"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// LoginService define las operaciones de sesión del panel.
type LoginService interface {
	Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, userID string) (*dto.MeResponse, error)
}

// LoginDeps contiene las dependencias para el login service.
type LoginDeps struct {
	Credentials repository.CredentialStore
	Profiles    repository.ProfileRepository
	Issuer      *jwtx.Issuer
	Sessions    *SessionCache
	Roles       *RoleCache
}

type loginService struct {
	deps LoginDeps
}

// NewLoginService crea un nuevo servicio de login.
func NewLoginService(deps LoginDeps) LoginService {
	return &loginService{deps: deps}
}

// Errores de login
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrEmailNotConfirmed  = fmt.Errorf("email not confirmed")
	ErrProfileNotFound    = fmt.Errorf("profile not found")
	ErrTokenIssueFailed   = fmt.Errorf("failed to issue token")
)

func (s *loginService) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Login"),
	)

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	sess, err := s.deps.Credentials.SignIn(ctx, in.Email, in.Password)
	switch {
	case errors.Is(err, repository.ErrInvalidCredentials):
		return nil, ErrInvalidCredentials
	case errors.Is(err, repository.ErrEmailNotConfirmed):
		return nil, ErrEmailNotConfirmed
	case err != nil:
		return nil, fmt.Errorf("sign in: %w", err)
	}
	log = log.With(logger.UserID(sess.UserID))

	// Sin perfil el login es válido pero sin rol (no entra al área admin).
	role, err := s.deps.Roles.RoleOf(ctx, sess.UserID)
	if err != nil && !repository.IsNotFound(err) {
		s.abort(ctx, log, sess)
		return nil, fmt.Errorf("load role: %w", err)
	}

	claims := map[string]any{"sid": sess.ID, "email": in.Email}
	if role != "" {
		claims["role"] = string(role)
	}
	token, exp, err := s.deps.Issuer.IssueAccess(sess.UserID, claims)
	if err != nil {
		log.Error("issue access token failed", logger.Err(err))
		s.abort(ctx, log, sess)
		return nil, ErrTokenIssueFailed
	}

	if err := s.deps.Sessions.Put(ctx, sess); err != nil {
		s.abort(ctx, log, sess)
		return nil, fmt.Errorf("cache session: %w", err)
	}

	log.Info("login succeeded", logger.Role(string(role)))
	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(exp).Seconds()),
		User: dto.UserInfo{
			ID:    sess.UserID,
			Email: in.Email,
			Role:  string(role),
		},
	}, nil
}

// abort cierra una sesión recién abierta cuando el login no puede completarse.
func (s *loginService) abort(ctx context.Context, log *zap.Logger, sess *repository.Session) {
	if err := s.deps.Credentials.SignOut(context.WithoutCancel(ctx), sess); err != nil {
		log.Warn("sign out after failed login", logger.Err(err))
	}
}

// Logout cierra la sesión en el credential store y la borra del cache.
// Una sesión que ya no está en cache se considera cerrada.
func (s *loginService) Logout(ctx context.Context, sessionID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Logout"),
	)

	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if cache.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.deps.Credentials.SignOut(ctx, sess); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if err := s.deps.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("drop cached session: %w", err)
	}
	log.Info("logout succeeded")
	return nil
}

func (s *loginService) Me(ctx context.Context, userID string) (*dto.MeResponse, error) {
	p, err := s.deps.Profiles.GetByID(ctx, userID)
	if repository.IsNotFound(err) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dto.MeResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
	}, nil
}
