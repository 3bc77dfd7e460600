package users

import "time"

// Status describes whether an account may authenticate.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

// RoleType represents an application role carried in token payloads.
// The auth service only transports role IDs; policy evaluation happens in
// the consuming application.
type RoleType string

const (
	RoleAdmin  RoleType = "admin"
	RoleEditor RoleType = "editor"
	RoleReader RoleType = "reader"
)

type User struct {
	ID           string     `json:"id,omitempty"`         // Unique identifier for the user
	Email        string     `json:"email,omitempty"`      // User's email address
	Name         string     `json:"name,omitempty"`       // Display name
	ImageURL     string     `json:"image_url,omitempty"`  // Avatar URL
	PasswordHash string     `json:"-"`                    // Hashed password - never serialize
	Roles        []RoleType `json:"roles,omitempty"`      // Role IDs embedded in tokens
	Verified     bool       `json:"verified,omitempty"`   // Has the email address been verified
	Status       Status     `json:"status,omitempty"`     // active / suspended / inactive
	CreatedAt    time.Time  `json:"created_at,omitempty"` // When the user registered
	LastLoginAt  time.Time  `json:"last_login,omitempty"` // Last successful login
}

// RoleIDs returns the user's roles as plain strings for token payloads.
func (u *User) RoleIDs() []string {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return roles
}

func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsSuspended() bool {
	return u.Status == StatusSuspended
}

func (u *User) IsInactive() bool {
	return u.Status == StatusInactive
}
