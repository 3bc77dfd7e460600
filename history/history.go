package history

import (
	"context"
	"time"
)

// Entry is one login-attempt record. Entries are written fire-and-forget;
// they exist for the admin audit view and for offline abuse analysis, never
// for auth decisions.
type Entry struct {
	ID        string    `json:"id"` // ULID, time-ordered
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	LoginType string    `json:"login_type"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo defines the interface for login-history storage.
type Repo interface {
	// Record persists one entry
	Record(ctx context.Context, entry *Entry) error

	// ListByUser returns a user's entries, newest first, capped at limit
	ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error)
}
