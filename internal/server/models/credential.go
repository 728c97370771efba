package models

import "time"

// Credential stores the password hash of an account. The hash never leaves
// the server.
type Credential struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
