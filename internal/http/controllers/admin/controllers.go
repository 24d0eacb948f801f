// Package admin contiene los controllers de /v1/admin.
package admin

import svc "github.com/dropDatabas3/printdesk/internal/http/services/admin"

// Controllers agrupa los controllers del dominio admin.
type Controllers struct {
	Profiles *ProfilesController
	Staff    *StaffController
}

// NewControllers crea el agregador de controllers admin.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Profiles: NewProfilesController(s.Profiles),
		Staff:    NewStaffController(s.Staff),
	}
}
