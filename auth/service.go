package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-cms/auth-service/history"
	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/inkwell-cms/auth-service/sessions"
	"github.com/inkwell-cms/auth-service/token"
	"github.com/inkwell-cms/auth-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Users    users.Repo    // Repository for user accounts
	Sessions sessions.Repo // The Session Store
	History  history.Repo  // Login-attempt history
}

// Service implements the token/session lifecycle: credential verification
// at login, the validate/rotate state machine on refresh, logout, and the
// admin session surface.
type Service struct {
	repos            Repos
	tokens           *token.Service
	recorder         *history.Recorder
	logger           zerolog.Logger
	sessionExpiry    time.Duration // initial session lifetime (login)
	sessionExtension time.Duration // lifetime granted on each rotation
	nowTime          func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithSessionLifetimes overrides the initial expiry and the
// extension-on-rotation.
func WithSessionLifetimes(initial, extension time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionExpiry = initial
		s.sessionExtension = extension
	}
}

// WithLogger sets the component logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService initializes the auth Service with required dependencies.
func NewService(repos Repos, tokens *token.Service, recorder *history.Recorder, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token service is required")
	}

	s := &Service{
		repos:            repos,
		tokens:           tokens,
		recorder:         recorder,
		logger:           zerolog.Nop(),
		sessionExpiry:    7 * 24 * time.Hour,
		sessionExtension: 14 * 24 * time.Hour,
		nowTime:          time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Login validates email/password and issues a new session with a token
// pair bound to the supplied fingerprint.
func (s *Service) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, autherrors.New(autherrors.CodeAuthError)
		}
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	if !users.CheckPasswordHash(params.Password, user.PasswordHash) {
		s.recordAttempt(user, params.Email, sessions.LoginTypeEmail, params.Client, false)
		return nil, autherrors.New(autherrors.CodeAuthError)
	}

	if !user.Verified {
		return nil, autherrors.New(autherrors.CodeEmailVerification)
	}
	if err := accountStatusError(user); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, user, params.Fingerprint, sessions.LoginTypeEmail, params.Client)
}

// LoginWithProvider signs in (or provisions) a user from a verified
// upstream OIDC identity and issues the same session/token pair as
// password login, with the provider name as the login type.
func (s *Service) LoginWithProvider(ctx context.Context, params ProviderLoginParams) (*LoginResult, error) {
	user, err := s.repos.Users.GetByEmail(ctx, params.Email)
	if errors.Is(err, users.ErrNotFound) {
		user = &users.User{
			Email:     params.Email,
			Name:      params.Name,
			ImageURL:  params.ImageURL,
			Roles:     []users.RoleType{users.RoleReader},
			Verified:  true, // the provider vouched for the address
			Status:    users.StatusActive,
			CreatedAt: s.nowTime(),
		}
		if err := s.repos.Users.Upsert(ctx, user); err != nil {
			return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
		}
	} else if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	if err := accountStatusError(user); err != nil {
		return nil, err
	}

	fingerprint := params.Fingerprint
	if fingerprint == "" {
		fingerprint = uuid.New().String()
	}

	return s.issueSession(ctx, user, fingerprint, params.Provider, params.Client)
}

// Logout deactivates the session holding the refresh cookie. It is
// idempotent and always succeeds from the caller's point of view.
func (s *Service) Logout(ctx context.Context, refreshCookie string) {
	if refreshCookie == "" {
		return
	}
	if err := s.repos.Sessions.DeactivateByRefreshToken(ctx, refreshCookie); err != nil {
		s.logger.Warn().Err(err).Msg("logout deactivation failed")
	}
}

func (s *Service) issueSession(ctx context.Context, user *users.User, fingerprint, loginType string, client ClientInfo) (*LoginResult, error) {
	now := s.nowTime()
	sessionID := uuid.New().String()

	pair, err := s.tokens.GenTokenPair(token.Payload{
		SessionID:   sessionID,
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		ImageURL:    user.ImageURL,
		Roles:       user.RoleIDs(),
		Fingerprint: fingerprint,
	})
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	session := &sessions.Session{
		ID:             sessionID,
		UserID:         user.ID,
		RefreshToken:   pair.RefreshToken,
		DeviceInfo:     client.DeviceInfo,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
		LoginType:      loginType,
		Active:         true,
		ExpiresAt:      now.Add(s.sessionExpiry),
		CreatedAt:      now,
		LastActivityAt: now,
		UpdatedAt:      now,
	}
	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		return nil, autherrors.Wrap(autherrors.CodeUnknownError, err)
	}

	s.recordAttempt(user, user.Email, loginType, client, true)

	if err := s.repos.Users.SetLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("last-login update failed")
	}

	return &LoginResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    sessionID,
		Fingerprint:  fingerprint,
	}, nil
}

// recordAttempt hands the entry to the fire-and-forget recorder; it never
// blocks or fails the calling auth operation.
func (s *Service) recordAttempt(user *users.User, email, loginType string, client ClientInfo, success bool) {
	if s.recorder == nil {
		return
	}
	entry := &history.Entry{
		Email:     email,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		LoginType: loginType,
		Success:   success,
	}
	if user != nil {
		entry.UserID = user.ID
	}
	s.recorder.Record(entry)
}

func accountStatusError(user *users.User) error {
	switch {
	case user.IsSuspended():
		return autherrors.New(autherrors.CodeAccountSuspended)
	case user.IsInactive():
		return autherrors.New(autherrors.CodeAccountInactive)
	}
	return nil
}
