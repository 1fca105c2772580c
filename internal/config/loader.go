package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, the optional YAML file at path,
// a .env file in the working directory (if any) and the process environment,
// in that order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Roblox.APIKey = getEnv("ROBLOX_API_KEY", cfg.Roblox.APIKey)
	cfg.Roblox.OAuthToken = getEnv("ROBLOX_OAUTH_TOKEN", cfg.Roblox.OAuthToken)
	cfg.Roblox.APIBase = getEnv("ROBLOX_API_BASE", cfg.Roblox.APIBase)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Metrics.Address = getEnv("METRICS_ADDR", cfg.Metrics.Address)

	var err error
	if cfg.Roblox.RequestTimeout, err = getEnvDuration("ROBLOX_REQUEST_TIMEOUT", cfg.Roblox.RequestTimeout); err != nil {
		return err
	}
	if cfg.Poll.Interval, err = getEnvDuration("ROBLOX_POLL_INTERVAL", cfg.Poll.Interval); err != nil {
		return err
	}
	if cfg.Poll.Attempts, err = getEnvInt("ROBLOX_POLL_ATTEMPTS", cfg.Poll.Attempts); err != nil {
		return err
	}
	if cfg.RateLimit.Burst, err = getEnvInt("ROBLOX_BURST", cfg.RateLimit.Burst); err != nil {
		return err
	}
	if cfg.RateLimit.RequestsPerSecond, err = getEnvFloat("ROBLOX_REQUESTS_PER_SECOND", cfg.RateLimit.RequestsPerSecond); err != nil {
		return err
	}
	return nil
}

// validate checks the configuration for errors. A missing API key is not an
// error here: the bridge reports it to the caller of each update instead.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Roblox.APIBase) == "" {
		return fmt.Errorf("roblox.api_base is required")
	}
	if !strings.HasPrefix(cfg.Roblox.APIBase, "http://") && !strings.HasPrefix(cfg.Roblox.APIBase, "https://") {
		return fmt.Errorf("roblox.api_base must be an http(s) URL")
	}
	if cfg.Roblox.RequestTimeout <= 0 {
		return fmt.Errorf("roblox.request_timeout must be positive")
	}
	if cfg.Poll.Attempts <= 0 {
		return fmt.Errorf("poll.attempts must be positive")
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive when pacing is enabled")
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
