// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered user. Only ID and IsPrivate matter to the follow
// workflow; the rest is profile data.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UserName  string    `json:"username"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
