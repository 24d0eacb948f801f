package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	dto "github.com/dropDatabas3/printdesk/internal/http/dto/admin"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// ProfilesService gestiona los roles de perfil (admin | staff).
type ProfilesService interface {
	List(ctx context.Context) (*dto.ListProfilesResponse, error)
	UpdateRole(ctx context.Context, actorID, profileID string, in dto.UpdateRoleRequest) (*dto.ProfileItem, error)
}

// RoleInvalidator descarta roles cacheados.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

var (
	ErrInvalidRole      = errors.New("invalid role")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrSelfDemotion     = errors.New("admin cannot remove its own admin role")
	ErrMissingProfileID = errors.New("missing profile id")
)

type profilesService struct {
	profiles repository.ProfileRepository
	roles    RoleInvalidator
}

// NewProfilesService crea el service de roles. roles puede ser nil.
func NewProfilesService(profiles repository.ProfileRepository, roles RoleInvalidator) ProfilesService {
	return &profilesService{profiles: profiles, roles: roles}
}

func (s *profilesService) List(ctx context.Context) (*dto.ListProfilesResponse, error) {
	items, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := &dto.ListProfilesResponse{Profiles: make([]dto.ProfileItem, 0, len(items))}
	for i := range items {
		out.Profiles = append(out.Profiles, toProfileItem(&items[i]))
	}
	return out, nil
}

func (s *profilesService) UpdateRole(ctx context.Context, actorID, profileID string, in dto.UpdateRoleRequest) (*dto.ProfileItem, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin.profiles"),
		logger.Op("UpdateRole"),
	)

	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, ErrMissingProfileID
	}
	role := repository.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	// Evita que el panel quede sin admin por un click propio.
	if profileID == actorID && role != repository.RoleAdmin {
		return nil, ErrSelfDemotion
	}

	p, err := s.profiles.UpdateRole(ctx, profileID, role)
	if repository.IsNotFound(err) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	if s.roles != nil {
		if err := s.roles.Invalidate(ctx, profileID); err != nil {
			log.Warn("role cache invalidation failed", logger.Err(err))
		}
	}

	log.Info("profile role updated", logger.UserID(profileID), logger.Role(string(role)), logger.String("actor_id", actorID))
	item := toProfileItem(p)
	return &item, nil
}

func toProfileItem(p *repository.Profile) dto.ProfileItem {
	return dto.ProfileItem{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
