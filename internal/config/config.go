package config

import (
	"time"

	robloxbridge "github.com/opengovern/roblox-bridge"
	"github.com/opengovern/roblox-bridge/adapters"
)

// Config is the root configuration structure.
type Config struct {
	Roblox    Roblox    `yaml:"roblox"`
	Poll      Poll      `yaml:"poll"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Log       Log       `yaml:"log"`
	Metrics   Metrics   `yaml:"metrics"`
}

// Roblox holds the Open Cloud credential and endpoint.
type Roblox struct {
	APIKey         string        `yaml:"api_key"`
	OAuthToken     string        `yaml:"oauth_token,omitempty"`
	APIBase        string        `yaml:"api_base"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Poll configures the operation poller.
type Poll struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// RateLimit configures client-side pacing. RequestsPerSecond 0 disables it.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Metrics configures the optional Prometheus listener. Empty Address disables it.
type Metrics struct {
	Address string `yaml:"address"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Roblox: Roblox{
			APIBase:        adapters.RobloxAPIBase,
			RequestTimeout: robloxbridge.DefaultRequestTimeout,
		},
		Poll: Poll{
			Attempts: robloxbridge.DefaultPollAttempts,
			Interval: robloxbridge.DefaultPollInterval,
		},
		RateLimit: RateLimit{
			Burst: 1,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// ProviderConfig converts the relevant sections into the bridge's provider config.
func (c *Config) ProviderConfig() *robloxbridge.ProviderConfig {
	return &robloxbridge.ProviderConfig{
		RequestTimeout:    c.Roblox.RequestTimeout,
		PollAttempts:      c.Poll.Attempts,
		PollInterval:      c.Poll.Interval,
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
	}
}

// Adapter builds the Open Cloud adapter carrying the configured credential.
func (c *Config) Adapter() *adapters.RobloxAdapter {
	return &adapters.RobloxAdapter{
		APIKey:     c.Roblox.APIKey,
		OAuthToken: c.Roblox.OAuthToken,
		BaseURL:    c.Roblox.APIBase,
	}
}
