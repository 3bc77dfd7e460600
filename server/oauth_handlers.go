package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/inkwell-cms/auth-service/auth"
	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/inkwell-cms/auth-service/internal/config"
)

// OIDCProvider wraps one upstream identity provider: its discovered OIDC
// metadata, the oauth2 client configuration, and the ID-token verifier.
type OIDCProvider struct {
	Name     string
	Config   *oauth2.Config
	Verifier *oidc.IDTokenVerifier
}

// NewOIDCProvider performs OIDC discovery against the provider's issuer
// and builds the oauth2 configuration with the service's callback URL.
func NewOIDCProvider(ctx context.Context, name string, cfg config.OAuthProvider, baseURL string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "[server.NewOIDCProvider] discovery for %s", name)
	}

	return &OIDCProvider{
		Name: name,
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  baseURL + "/auth/oauth/" + name + "/callback",
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		Verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// OAuthLoginHandler serves GET /auth/oauth/{provider}: it drops a
// single-use state cookie and redirects the browser to the provider's
// authorization endpoint.
func (s *Server) OAuthLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := s.providers[r.PathValue("provider")]
		if !ok {
			s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
			return
		}

		state := uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieOAuthState,
			Value:    state,
			Path:     "/",
			MaxAge:   int((10 * time.Minute).Seconds()),
			HttpOnly: true,
			Secure:   s.env != "DEV",
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, provider.Config.AuthCodeURL(state), http.StatusFound)
	}
}

// OAuthCallbackHandler serves GET /auth/oauth/{provider}/callback: it
// checks the state cookie, exchanges the code, verifies the ID token and
// logs the asserted identity in, provisioning the account on first sight.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := s.providers[r.PathValue("provider")]
		if !ok {
			s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
			return
		}

		// r.FormValue covers both query params and form_post response mode.
		state := r.FormValue("state")
		code := r.FormValue("code")
		if state == "" || code == "" || state != cookieValue(r, CookieOAuthState) {
			s.respondError(w, r, autherrors.New(autherrors.CodeTokenDenied))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: CookieOAuthState, Value: "", Path: "/", MaxAge: -1})

		oauth2Token, err := provider.Config.Exchange(r.Context(), code)
		if err != nil {
			s.respondError(w, r, autherrors.Wrap(autherrors.CodeAuthError, err))
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			s.respondError(w, r, autherrors.New(autherrors.CodeAuthError))
			return
		}

		idToken, err := provider.Verifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			s.respondError(w, r, autherrors.Wrap(autherrors.CodeInvalidToken, err))
			return
		}

		var claims struct {
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := idToken.Claims(&claims); err != nil {
			s.respondError(w, r, autherrors.Wrap(autherrors.CodeInvalidToken, err))
			return
		}
		if claims.Email == "" {
			s.respondError(w, r, autherrors.New(autherrors.CodeAuthError))
			return
		}

		result, err := s.auth.LoginWithProvider(r.Context(), auth.ProviderLoginParams{
			Provider:    provider.Name,
			Email:       claims.Email,
			Name:        claims.Name,
			ImageURL:    claims.Picture,
			Fingerprint: cookieValue(r, CookieFingerprint),
			Client: auth.ClientInfo{
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
			},
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.setAuthCookies(w, result.RefreshToken, result.Fingerprint, s.config.GetSessionExpiry())
		http.Redirect(w, r, "/", http.StatusFound)
	}
}
