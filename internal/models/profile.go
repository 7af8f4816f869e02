package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserProfile holds the moderation flags for an account.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *UserProfile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Identity is the authenticated caller of an operation. It carries no
// moderation flags: those are always read live from the profile.
type Identity struct {
	UserID string
	Email  string
}

// Vote is one user's upvote on one deal.
type Vote struct {
	UserID    string
	DealID    int64
	CreatedAt time.Time
}
