package sessions

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no session matches the lookup. Expired or
// inactive rows are treated as not found by the FindActive* lookups.
var ErrNotFound = errors.New("session not found")

// Repo is the Session Store contract. Any persistent relational or KV
// store satisfies it; implementations must guarantee that Rotate is a
// single-use compare-and-update so two concurrent rotations on the same
// stale token cannot both succeed.
type Repo interface {
	// Create persists a new session row
	Create(ctx context.Context, session *Session) error

	// FindActive returns the row iff it is active and not expired. The
	// refresh token value is ignored; this backs the read-only freshness
	// check on the "refresh" path.
	FindActive(ctx context.Context, sessionID, userID string) (*Session, error)

	// FindActiveByRefreshToken returns the row iff it is active, not
	// expired, and its refresh token exactly equals token.
	FindActiveByRefreshToken(ctx context.Context, token, userID string) (*Session, error)

	// Update applies a partial update (deactivate, touch).
	Update(ctx context.Context, sessionID string, patch Patch) error

	// Rotate replaces the refresh token, extends the expiry and touches
	// the activity time, all conditioned on oldToken still being the
	// current value of an active, unexpired row. It reports whether the
	// swap happened.
	Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt, lastActivityAt time.Time) (bool, error)

	// DeactivateByRefreshToken deactivates the session currently holding
	// token. Best-effort: a missing row is not an error.
	DeactivateByRefreshToken(ctx context.Context, token string) error

	// ListByUser returns all of a user's session rows, newest first,
	// including inactive ones (admin audit surface).
	ListByUser(ctx context.Context, userID string) ([]*Session, error)

	// Delete hard-deletes a row (admin purge).
	Delete(ctx context.Context, sessionID string) error
}
