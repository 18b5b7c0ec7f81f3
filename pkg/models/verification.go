package models

import "time"

// Verification is returned to a client after a successful key check.
type Verification struct {
	Key         string    `json:"key"`
	MachineID   string    `json:"machine_id,omitempty"`
	UserEmail   string    `json:"user_email"`
	DateCreated time.Time `json:"date_created"`
	ExpiresAt   time.Time `json:"expires_at"`
}
