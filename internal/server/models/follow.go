package models

import "time"

// Follow is a directed edge: FollowerID follows FollowedID. IsApproved
// starts false for private targets and only ever moves to true.
type Follow struct {
	ID         string    `json:"id"`
	FollowerID string    `json:"follower_id"`
	FollowedID string    `json:"followed_id"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Pending reports whether the edge still awaits the target's approval.
func (f *Follow) Pending() bool {
	return !f.IsApproved
}
