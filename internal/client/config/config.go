package config

import "time"

// Config holds runtime settings for the userctl CLI.
//
// Fields:
//   - ServerAddr: base URL of the directory server HTTP API.
//   - RequestTimeout: per-request timeout for API calls.
type Config struct {
	ServerAddr     string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg, args)
	return cfg
}
