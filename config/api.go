package config

// APIConfig configures the HTTP boundary.
type APIConfig struct {
	// Addr is the listen address of the HTTP API.
	Addr string `json:"addr"`
	// Token, when set, is required as a Bearer token on every request.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
