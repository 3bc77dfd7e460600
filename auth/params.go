package auth

import (
	"strings"

	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/inkwell-cms/auth-service/users"
)

// ClientInfo carries the request-level facts every auth operation records
// on a session: where the call came from and what made it.
type ClientInfo struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

// LoginParams is the input to password login. Fingerprint is the
// client-generated opaque value that will be embedded in every token
// minted for the session.
type LoginParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
	Client      ClientInfo
}

func (p LoginParams) validate() error {
	if strings.TrimSpace(p.Email) == "" || !strings.Contains(p.Email, "@") {
		return autherrors.New(autherrors.CodeAuthError)
	}
	if p.Password == "" {
		return autherrors.New(autherrors.CodeAuthError)
	}
	if strings.TrimSpace(p.Fingerprint) == "" {
		return autherrors.New(autherrors.CodeTokenDenied)
	}
	return nil
}

// ProviderLoginParams is the input to OAuth-provider login, filled from a
// verified upstream ID token.
type ProviderLoginParams struct {
	Provider    string
	Email       string
	Name        string
	ImageURL    string
	Fingerprint string
	Client      ClientInfo
}

// LoginResult is returned on any successful login path.
type LoginResult struct {
	User         *users.User
	AccessToken  string
	RefreshToken string
	SessionID    string
	Fingerprint  string
}

// ValidateParams is the input to the read-only "refresh" re-validation
// path. The refresh token and fingerprint arrive via separate transport
// channels (cookies) from the bearer access token.
type ValidateParams struct {
	RefreshCookie     string
	FingerprintCookie string
	AccessToken       string
	IPAddress         string
}

// ValidateResult carries the session's unchanged current refresh token.
type ValidateResult struct {
	RefreshToken string
}

// RotateParams is the input to the mutating "token" rotation path.
type RotateParams struct {
	RefreshCookie     string
	FingerprintCookie string
}

// RotateResult carries the freshly minted pair.
type RotateResult struct {
	AccessToken  string
	RefreshToken string
}
