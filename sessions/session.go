package sessions

import "time"

// Login types recorded on a session.
const (
	LoginTypeEmail = "email"
)

// Session represents one authenticated device/browser instance. The
// RefreshToken column holds the single currently valid opaque credential:
// rotation replaces it, and among active sessions the value uniquely
// identifies its row. Active is a one-way flag; logout, explicit revocation
// and anomaly detection all clear it and nothing sets it back. Rows are
// kept after deactivation for the admin audit view.
type Session struct {
	ID             string    `json:"id"`               // Opaque unique identity (UUID)
	UserID         string    `json:"user_id"`          // Owning user
	RefreshToken   string    `json:"-"`                // Current valid refresh credential - never serialize
	DeviceInfo     string    `json:"device_info"`      // Client-reported device description
	IPAddress      string    `json:"ip_address"`       // IP the session was created from
	UserAgent      string    `json:"user_agent"`       // User agent at login
	LoginType      string    `json:"login_type"`       // "email" or an OAuth provider name
	Active         bool      `json:"active"`           // One-way: never reset to true
	ExpiresAt      time.Time `json:"expires_at"`       // Hard revocation time, extended on rotation
	CreatedAt      time.Time `json:"created_at"`       // When the session was created
	LastActivityAt time.Time `json:"last_activity_at"` // Touched on rotation
	UpdatedAt      time.Time `json:"updated_at"`       // Last row mutation
}

// Expired reports whether the session's hard expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Patch describes a partial update. Nil fields are left untouched.
// Rotation does not go through Patch; it uses Repo.Rotate so the
// replacement is conditioned on the old refresh value.
type Patch struct {
	Active         *bool
	ExpiresAt      *time.Time
	LastActivityAt *time.Time
}
