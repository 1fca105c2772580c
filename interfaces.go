package robloxbridge

import (
	"context"
	"time"
)

// ProviderAdapter defines the transport half of the bridge: it owns the base URL,
// the credential and the HTTP client.
type ProviderAdapter interface {
	ExecuteRequest(ctx context.Context, req *NormalizedRequest) (*NormalizedResponse, error)
	ParseRateLimitInfo(resp *NormalizedResponse) (*NormalizedRateLimitInfo, error)
	IsRateLimitError(resp *NormalizedResponse) bool

	// HasCredential reports whether a credential was supplied. The bridge checks it
	// before any network call is made.
	HasCredential() bool
}

// Recorder receives measurements from the executor, the poller and the workflow.
// Labels are plain strings so implementations need not import this package.
type Recorder interface {
	ObserveRequest(method, failure string, elapsed time.Duration)
	ObservePoll(attempts int, failure string)
	ObserveOutcome(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, time.Duration) {}
func (nopRecorder) ObservePoll(int, string)                      {}
func (nopRecorder) ObserveOutcome(string)                        {}
