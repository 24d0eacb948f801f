package repository

import (
	"context"
	"time"
)

// Role es el rol de aplicación de un perfil.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid indica si el rol es uno de los roles de perfil conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// Profile es el registro de aplicación correlacionado 1:1 con una Credential (mismo ID).
type Profile struct {
	ID        string
	Email     string
	FullName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileRepository define operaciones sobre la colección profiles.
type ProfileRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// Upsert inserta el perfil o actualiza email, full_name y role por id.
	Upsert(ctx context.Context, p Profile) error

	// List retorna los perfiles, más nuevos primero.
	List(ctx context.Context) ([]Profile, error)

	// UpdateRole cambia el rol y retorna el perfil actualizado.
	// Retorna ErrNotFound si no existe.
	UpdateRole(ctx context.Context, id string, role Role) (*Profile, error)
}
