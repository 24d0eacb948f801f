// Package setup contiene los DTOs de /v1/setup.
package setup

import (
	"time"

	"github.com/dropDatabas3/printdesk/internal/setup"
)

// StatusResponse es el estado del provisioning del admin por defecto.
type StatusResponse struct {
	Enabled    bool           `json:"enabled"`
	Phase      string         `json:"phase"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Outcome    *setup.Outcome `json:"outcome,omitempty"`
}
