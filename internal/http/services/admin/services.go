// Package admin contiene los services del área admin (roles y staff).
package admin

import "github.com/dropDatabas3/printdesk/internal/domain/repository"

// Deps contiene las dependencias para crear los services admin.
type Deps struct {
	Profiles repository.ProfileRepository
	Staff    repository.StaffRepository
	Roles    RoleInvalidator
}

// Services agrupa los services del dominio admin.
type Services struct {
	Profiles ProfilesService
	Staff    StaffService
}

// NewServices crea el agregador de services admin.
func NewServices(d Deps) Services {
	return Services{
		Profiles: NewProfilesService(d.Profiles, d.Roles),
		Staff:    NewStaffService(d.Staff),
	}
}
