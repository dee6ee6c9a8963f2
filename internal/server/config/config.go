// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Auth modes: how the HTTP layer resolves the caller of a request.
const (
	AuthModeToken  = "token"  // Authorization: Bearer <jwt>
	AuthModeHeader = "header" // X-Login / X-Password headers
)

// Config holds runtime settings for the user directory server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx); an empty DSN selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - AuthMode: caller resolution strategy, "token" or "header".
//   - AdminLogin / AdminPassword / AdminName: the bootstrap administrator record
//     seeded on startup when no such login exists.
type Config struct {
	EndpointAddr                 string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	AuthMode                     string
	AdminLogin                   string
	AdminPassword                string
	AdminName                    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 2 * time.Hour
	c.RefreshTokenValidityDuration = 72 * time.Hour
	c.AuthMode = AuthModeToken
	c.AdminLogin = "Admin"
	c.AdminPassword = "Admin123"
	c.AdminName = "Administrator"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
