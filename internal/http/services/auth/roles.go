package auth

import (
	"context"
	"time"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

const roleKeyPrefix = "role:"

// RoleCache resuelve el rol de perfil con un cache de TTL corto delante del repo.
// Implementa middlewares.RoleResolver.
type RoleCache struct {
	profiles repository.ProfileRepository
	cache    cache.Client
	ttl      time.Duration
}

// NewRoleCache crea el resolver. ttl <= 0 usa 1m.
func NewRoleCache(profiles repository.ProfileRepository, c cache.Client, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RoleCache{profiles: profiles, cache: c, ttl: ttl}
}

// RoleOf retorna el rol del usuario o repository.ErrNotFound si no tiene perfil.
// Un error del cache no es fatal: se consulta el repo.
func (r *RoleCache) RoleOf(ctx context.Context, userID string) (repository.Role, error) {
	if v, err := r.cache.Get(ctx, roleKeyPrefix+userID); err == nil {
		return repository.Role(v), nil
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Warn("role cache get failed", logger.Err(err))
	}

	p, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := r.cache.Set(ctx, roleKeyPrefix+userID, string(p.Role), r.ttl); err != nil {
		logger.From(ctx).Warn("role cache set failed", logger.Err(err))
	}
	return p.Role, nil
}

// Invalidate descarta el rol cacheado (después de un cambio de rol).
func (r *RoleCache) Invalidate(ctx context.Context, userID string) error {
	return r.cache.Delete(ctx, roleKeyPrefix+userID)
}
