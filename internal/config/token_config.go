package config

import "time"

const devFallbackSecret = "dev-only-secret-do-not-deploy"

// GetAccessTokenSecret returns the HMAC secret for access-token signing.
// Outside DEV a missing secret is a deployment error surfaced at startup
// by the server bootstrap.
func (c *viperConfig) GetAccessTokenSecret() string {
	return c.secretOrDevFallback("access_token_secret")
}

// GetRefreshTokenSecret returns the secret the refresh-token AEAD key is
// derived from.
func (c *viperConfig) GetRefreshTokenSecret() string {
	return c.secretOrDevFallback("refresh_token_secret")
}

// GetRefreshKDFSalt returns the salt for the refresh-key derivation. It is
// not secret but must be stable across restarts or issued refresh tokens
// stop decrypting.
func (c *viperConfig) GetRefreshKDFSalt() string {
	salt := c.v.GetString("refresh_kdf_salt")
	if salt == "" {
		salt = "inkwell-refresh-kdf-v1"
	}
	return salt
}

func (c *viperConfig) GetAccessTokenExpiry() time.Duration {
	return c.v.GetDuration("access_token_ttl")
}

// GetRefreshTokenExpiry returns the internal expiry claim embedded in
// refresh tokens. The session row's own expiry governs revocation
// independently.
func (c *viperConfig) GetRefreshTokenExpiry() time.Duration {
	return c.v.GetDuration("refresh_token_ttl")
}

func (c *viperConfig) GetSessionExpiry() time.Duration {
	return c.v.GetDuration("session_ttl")
}

// GetSessionExtension returns how far a session's expiry is pushed out on
// each successful rotation.
func (c *viperConfig) GetSessionExtension() time.Duration {
	return c.v.GetDuration("session_extension")
}

func (c *viperConfig) secretOrDevFallback(key string) string {
	secret := c.v.GetString(key)
	if secret == "" && c.GetEnv() == "DEV" {
		return devFallbackSecret
	}
	return secret
}
