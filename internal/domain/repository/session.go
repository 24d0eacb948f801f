package repository

import "time"

// Session representa una sesión abierta por SignIn.
type Session struct {
	ID        string
	UserID    string
	Email     string
	Token     string // token opaco (local) o access token del proveedor (remoto)
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired indica si la sesión ya venció respecto de now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
