package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates every configuration concern the service needs. Each
// sub-interface maps to one area of the system so components can depend on
// the narrow slice they actually use.
type Config interface {
	EnvConfig
	TokenConfig
	SessionConfig
	StoreConfig
	RateLimitConfig
	ProviderConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type TokenConfig interface {
	GetAccessTokenSecret() string
	GetRefreshTokenSecret() string
	GetRefreshKDFSalt() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type SessionConfig interface {
	GetSessionExpiry() time.Duration
	GetSessionExtension() time.Duration
}

type StoreConfig interface {
	GetSessionStoreBackend() string
	GetDatabaseURL() string
	GetRedisAddr() string
	GetRedisPassword() string
}

type RateLimitConfig interface {
	GetRateLimitMax() int
	GetRateLimitWindow() time.Duration
	GetRateLimitSweepInterval() time.Duration
}

type ProviderConfig interface {
	GetOAuthProviders() map[string]OAuthProvider
}

// OAuthProvider holds the settings for one upstream OIDC login provider.
type OAuthProvider struct {
	Issuer       string
	ClientID     string
	ClientSecret string
}

type viperConfig struct {
	v *viper.Viper
}

var _ Config = (*viperConfig)(nil)

// New builds a Config backed by viper: values come from the environment,
// with defaults suitable for local development. Secrets have no defaults
// outside DEV.
func New() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("app_name", "Inkwell Auth")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("env", "DEV")

	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("session_extension", 14*24*time.Hour)

	v.SetDefault("session_store", "memory")
	v.SetDefault("redis_addr", "localhost:6379")

	v.SetDefault("rate_limit_max", 100)
	v.SetDefault("rate_limit_window", time.Minute)
	v.SetDefault("rate_limit_sweep", 5*time.Minute)

	v.SetDefault("oauth_google_issuer", "https://accounts.google.com")

	return &viperConfig{v: v}
}
