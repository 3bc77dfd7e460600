package config

import "time"

// GetSessionStoreBackend selects the Session Store implementation:
// "memory", "postgres" or "redis".
func (c *viperConfig) GetSessionStoreBackend() string {
	return c.v.GetString("session_store")
}

func (c *viperConfig) GetDatabaseURL() string {
	return c.v.GetString("database_url")
}

func (c *viperConfig) GetRedisAddr() string {
	return c.v.GetString("redis_addr")
}

func (c *viperConfig) GetRedisPassword() string {
	return c.v.GetString("redis_password")
}

func (c *viperConfig) GetRateLimitMax() int {
	return c.v.GetInt("rate_limit_max")
}

func (c *viperConfig) GetRateLimitWindow() time.Duration {
	return c.v.GetDuration("rate_limit_window")
}

func (c *viperConfig) GetRateLimitSweepInterval() time.Duration {
	return c.v.GetDuration("rate_limit_sweep")
}

// GetOAuthProviders returns the configured upstream OIDC providers keyed by
// provider name. A provider with no client ID is treated as disabled.
func (c *viperConfig) GetOAuthProviders() map[string]OAuthProvider {
	providers := make(map[string]OAuthProvider)
	for _, name := range []string{"google", "microsoft"} {
		p := OAuthProvider{
			Issuer:       c.v.GetString("oauth_" + name + "_issuer"),
			ClientID:     c.v.GetString("oauth_" + name + "_client_id"),
			ClientSecret: c.v.GetString("oauth_" + name + "_client_secret"),
		}
		if p.ClientID != "" {
			providers[name] = p
		}
	}
	return providers
}
