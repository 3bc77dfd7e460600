package users

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// Repo defines the interface for user storage operations.
type Repo interface {
	// Upsert creates or updates a user, assigning an ID when absent
	Upsert(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email address
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// SetLastLogin updates the user's last successful login timestamp
	SetLastLogin(ctx context.Context, id string) error

	// Delete removes a user by email
	Delete(ctx context.Context, email string) error
}
