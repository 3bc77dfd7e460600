package auth

import (
	"context"

	"github.com/inkwell-cms/auth-service/history"
	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/inkwell-cms/auth-service/internal/utils"
	"github.com/inkwell-cms/auth-service/sessions"
	"github.com/pkg/errors"
)

// The admin surface is the only contract this service exposes outward
// beyond the auth endpoints: reading session rows and terminating or
// purging them.

// ListSessions returns all of a user's session rows, including inactive
// ones retained for audit.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]*sessions.Session, error) {
	out, err := s.repos.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}
	return out, nil
}

// TerminateSession deactivates a session by ID. Terminating an already
// inactive or missing session is not an error.
func (s *Service) TerminateSession(ctx context.Context, sessionID string) error {
	err := s.repos.Sessions.Update(ctx, sessionID, sessions.Patch{Active: utils.Ptr(false)})
	if err != nil && !isNotFound(err) {
		return autherrors.Wrap(autherrors.CodeUnknownError, err)
	}
	return nil
}

// DeleteSession hard-deletes a session row (admin purge of audit rows).
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.repos.Sessions.Delete(ctx, sessionID); err != nil {
		return autherrors.Wrap(autherrors.CodeUnknownError, err)
	}
	return nil
}

// LoginHistory returns a user's recent login attempts.
func (s *Service) LoginHistory(ctx context.Context, userID string, limit int) ([]*history.Entry, error) {
	if s.repos.History == nil {
		return nil, nil
	}
	entries, err := s.repos.History.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}
	return entries, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sessions.ErrNotFound)
}
