package auth

import (
	"context"

	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/inkwell-cms/auth-service/internal/utils"
	"github.com/inkwell-cms/auth-service/sessions"
	"github.com/inkwell-cms/auth-service/token"
	"github.com/inkwell-cms/auth-service/users"
	"github.com/pkg/errors"
)

// decodeRefreshCookie enforces the preconditions shared by both refresh
// paths: the cookie must decrypt to a payload carrying a sessionID, and
// the fingerprint inside it must equal the independently transported
// fingerprint cookie. A mismatch is denied without touching the session;
// at this point nothing proves the caller is its owner.
func (s *Service) decodeRefreshCookie(refreshCookie, fingerprintCookie string) (*token.Payload, error) {
	if refreshCookie == "" || fingerprintCookie == "" {
		return nil, autherrors.New(autherrors.CodeTokenDenied)
	}

	payload, ok := s.tokens.VerifyRefreshToken(refreshCookie)
	if !ok || payload.SessionID == "" {
		return nil, autherrors.New(autherrors.CodeInvalidToken)
	}

	if payload.Fingerprint != fingerprintCookie {
		return nil, autherrors.New(autherrors.CodeTokenDenied)
	}

	return payload, nil
}

// VerifyAccessToken checks a bearer access token and returns its payload,
// mapped onto the closed error taxonomy. Used by middleware guarding the
// admin surface.
func (s *Service) VerifyAccessToken(raw string) (*token.Payload, error) {
	if raw == "" {
		return nil, autherrors.New(autherrors.CodeTokenDenied)
	}
	payload, err := s.tokens.Verify(raw, token.TypeAccess)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, autherrors.New(autherrors.CodeTokenExpired)
		}
		return nil, autherrors.New(autherrors.CodeInvalidToken)
	}
	return payload, nil
}

// ValidateSession is the read-only "refresh" path: it lets a client
// reconfirm its cookies are still good without generating a rotation
// event. A fingerprint or sessionID disagreement between the access and
// refresh tokens is treated as a hijack signal and deactivates the
// session; so is an IP change since the session was created.
func (s *Service) ValidateSession(ctx context.Context, params ValidateParams) (*ValidateResult, error) {
	refreshPayload, err := s.decodeRefreshCookie(params.RefreshCookie, params.FingerprintCookie)
	if err != nil {
		return nil, err
	}

	if params.AccessToken == "" {
		return nil, autherrors.New(autherrors.CodeTokenDenied)
	}
	accessPayload, err := s.tokens.Verify(params.AccessToken, token.TypeAccess)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, autherrors.New(autherrors.CodeTokenExpired)
		}
		return nil, autherrors.New(autherrors.CodeInvalidToken)
	}

	if accessPayload.Fingerprint != refreshPayload.Fingerprint ||
		accessPayload.SessionID != refreshPayload.SessionID {
		s.deactivate(ctx, refreshPayload.SessionID, "token cross-binding mismatch")
		return nil, autherrors.New(autherrors.CodeTokenDenied)
	}

	session, err := s.repos.Sessions.FindActive(ctx, refreshPayload.SessionID, refreshPayload.UserID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, autherrors.New(autherrors.CodeTokenExpired)
		}
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	if session.IPAddress != "" && params.IPAddress != "" && session.IPAddress != params.IPAddress {
		s.deactivate(ctx, session.ID, "ip address changed")
		return nil, autherrors.New(autherrors.CodeTokenDenied)
	}

	// No rotation: hand back the session's current refresh token as-is.
	return &ValidateResult{RefreshToken: session.RefreshToken}, nil
}

// RotateSession is the mutating "token" path: it mints a fresh pair bound
// to the same sessionID and fingerprint, then atomically swaps the stored
// refresh value. The swap is conditioned on the presented token still
// being current, so of two racers on the same stale value exactly one
// succeeds; the loser observes TokenExpired.
func (s *Service) RotateSession(ctx context.Context, params RotateParams) (*RotateResult, error) {
	refreshPayload, err := s.decodeRefreshCookie(params.RefreshCookie, params.FingerprintCookie)
	if err != nil {
		return nil, err
	}

	session, err := s.repos.Sessions.FindActiveByRefreshToken(ctx, params.RefreshCookie, refreshPayload.UserID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, autherrors.New(autherrors.CodeTokenExpired)
		}
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	user, err := s.repos.Users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, autherrors.New(autherrors.CodeAccountInactive)
		}
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}
	if err := accountStatusError(user); err != nil {
		return nil, err
	}

	// Fresh payload from the live user record; only sessionID and
	// fingerprint carry over from the old token.
	pair, err := s.tokens.GenTokenPair(token.Payload{
		SessionID:   session.ID,
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		ImageURL:    user.ImageURL,
		Roles:       user.RoleIDs(),
		Fingerprint: refreshPayload.Fingerprint,
	})
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	now := s.nowTime()
	rotated, err := s.repos.Sessions.Rotate(ctx, session.ID, params.RefreshCookie, pair.RefreshToken, now.Add(s.sessionExtension), now)
	if err != nil {
		// The old token was not replaced; it stays valid. No partial rotation.
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}
	if !rotated {
		return nil, autherrors.New(autherrors.CodeTokenExpired)
	}

	return &RotateResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// deactivate closes a session in response to detected tampering. Errors
// are logged but not surfaced; the request is being denied either way.
func (s *Service) deactivate(ctx context.Context, sessionID, reason string) {
	if err := s.repos.Sessions.Update(ctx, sessionID, sessions.Patch{Active: utils.Ptr(false)}); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Str("reason", reason).Msg("session deactivation failed")
		return
	}
	s.logger.Warn().Str("session_id", sessionID).Str("reason", reason).Msg("session deactivated")
}
