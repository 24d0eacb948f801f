package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	mw "github.com/dropDatabas3/printdesk/internal/http/middlewares"
)

const sessionKeyPrefix = "sess:"

// sessionRecord es lo que se guarda en cache por sid.
// Token es el token del credential store, necesario para SignOut.
type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"uid"`
	Email     string    `json:"email"`
	Token     string    `json:"tok"`
	CreatedAt time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// SessionCache guarda las sesiones abiertas por login, indexadas por sid.
// Implementa middlewares.SessionValidator.
type SessionCache struct {
	cache      cache.Client
	defaultTTL time.Duration
	now        func() time.Time
}

// NewSessionCache crea el cache de sesiones. defaultTTL aplica a sesiones sin ExpiresAt.
func NewSessionCache(c cache.Client, defaultTTL time.Duration) *SessionCache {
	if defaultTTL <= 0 {
		defaultTTL = 12 * time.Hour
	}
	return &SessionCache{cache: c, defaultTTL: defaultTTL, now: time.Now}
}

// Put guarda la sesión hasta su expiración.
func (c *SessionCache) Put(ctx context.Context, s *repository.Session) error {
	ttl := c.defaultTTL
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(c.now())
	}
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	b, err := json.Marshal(sessionRecord{
		ID:        s.ID,
		UserID:    s.UserID,
		Email:     s.Email,
		Token:     s.Token,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, sessionKeyPrefix+s.ID, string(b), ttl)
}

// Get retorna la sesión o cache.ErrNotFound.
func (c *SessionCache) Get(ctx context.Context, sid string) (*repository.Session, error) {
	raw, err := c.cache.Get(ctx, sessionKeyPrefix+sid)
	if err != nil {
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sid, err)
	}
	return &repository.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Email:     rec.Email,
		Token:     rec.Token,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Delete borra la sesión. Borrar una sesión inexistente no es error.
func (c *SessionCache) Delete(ctx context.Context, sid string) error {
	return c.cache.Delete(ctx, sessionKeyPrefix+sid)
}

// ValidateSession implementa middlewares.SessionValidator.
func (c *SessionCache) ValidateSession(ctx context.Context, sid, userID string) error {
	s, err := c.Get(ctx, sid)
	if cache.IsNotFound(err) {
		return mw.ErrSessionInactive
	}
	if err != nil {
		return err
	}
	if s.UserID != userID || s.Expired(c.now()) {
		return mw.ErrSessionInactive
	}
	return nil
}
