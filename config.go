// config.go
// ----------
// This file defines the ProviderConfig structure, which carries the knobs of a single
// Open Cloud integration: the per-call timeout, the polling budget and an optional
// client-side request rate.
package robloxbridge

import "time"

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollAttempts   = 10
	DefaultPollInterval   = 5 * time.Second
)

// ProviderConfig allows per-provider customization of timeouts, polling and pacing.
type ProviderConfig struct {
	RequestTimeout time.Duration // Per-call timeout enforced by the executor
	PollAttempts   int           // Max number of status queries for one operation
	PollInterval   time.Duration // Fixed delay between status queries

	RequestsPerSecond float64 // Client-side pacing; 0 disables it
	Burst             int     // Burst size for the pacing limiter
}

// DefaultProviderConfig returns the values the Open Cloud workflow uses when nothing is configured.
func DefaultProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		RequestTimeout: DefaultRequestTimeout,
		PollAttempts:   DefaultPollAttempts,
		PollInterval:   DefaultPollInterval,
	}
}

// withDefaults fills zero fields so a partially populated config is usable.
func (c *ProviderConfig) withDefaults() *ProviderConfig {
	out := DefaultProviderConfig()
	if c == nil {
		return out
	}
	if c.RequestTimeout > 0 {
		out.RequestTimeout = c.RequestTimeout
	}
	if c.PollAttempts > 0 {
		out.PollAttempts = c.PollAttempts
	}
	if c.PollInterval > 0 {
		out.PollInterval = c.PollInterval
	}
	out.RequestsPerSecond = c.RequestsPerSecond
	out.Burst = c.Burst
	return out
}
