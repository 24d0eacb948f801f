package admin

import "time"

// StaffItem es un miembro del staff.
type StaffItem struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number"`
	Role        string    `json:"role"`
	CreatedBy   *string   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListStaffResponse es la respuesta de GET /v1/admin/staff.
type ListStaffResponse struct {
	Staff []StaffItem `json:"staff"`
}

// CreateStaffRequest es el body de POST /v1/admin/staff.
type CreateStaffRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Role        string `json:"role"`
}
