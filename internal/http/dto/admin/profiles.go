// Package admin contiene los DTOs de /v1/admin.
package admin

import "time"

// ProfileItem es un perfil en el listado de roles.
type ProfileItem struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListProfilesResponse es la respuesta de GET /v1/admin/profiles.
type ListProfilesResponse struct {
	Profiles []ProfileItem `json:"profiles"`
}

// UpdateRoleRequest es el body de PUT /v1/admin/profiles/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}
