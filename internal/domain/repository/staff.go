package repository

import (
	"context"
	"time"
)

// StaffRole es el puesto de un miembro del staff (no confundir con Role de perfil).
type StaffRole string

const (
	StaffRoleStaff    StaffRole = "staff"
	StaffRoleManager  StaffRole = "manager"
	StaffRoleCleaner  StaffRole = "cleaner"
	StaffRoleDesigner StaffRole = "designer"
)

// Valid indica si el puesto es conocido.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleStaff, StaffRoleManager, StaffRoleCleaner, StaffRoleDesigner:
		return true
	}
	return false
}

// StaffMember es un registro de la tabla staff.
type StaffMember struct {
	ID          string
	FullName    string
	Email       string
	PhoneNumber *string
	Role        StaffRole
	CreatedBy   *string
	CreatedAt   time.Time
}

// CreateStaffInput contiene los datos para registrar un miembro del staff.
type CreateStaffInput struct {
	FullName    string
	Email       string
	PhoneNumber string
	Role        StaffRole
	CreatedBy   string
}

// StaffRepository define operaciones sobre staff.
type StaffRepository interface {
	// List retorna el staff, más nuevos primero.
	List(ctx context.Context) ([]StaffMember, error)

	// Create retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, in CreateStaffInput) (*StaffMember, error)
}
