package config

import "fmt"

func (c *viperConfig) GetPort() string {
	port := c.v.GetString("port")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (c *viperConfig) GetAppName() string {
	return c.v.GetString("app_name")
}

// GetBaseURL returns the externally visible base URL of the service,
// used for OAuth redirect URIs.
func (c *viperConfig) GetBaseURL() string {
	return c.v.GetString("base_url")
}

func (c *viperConfig) GetEnv() string {
	return c.v.GetString("env")
}
