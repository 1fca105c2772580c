// rate_limiter.go
// ----------------
// This file defines the RateLimiter type, which paces outbound Open Cloud calls.
// It combines a local token bucket (golang.org/x/time/rate) with the limit info the
// adapter parses from response headers, so a request issued after the server reported
// an exhausted quota waits until the reported reset time.
//
// The limiter never retries anything; it only delays the next call.
package robloxbridge

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/opengovern/roblox-bridge/internal"
)

// maxServerDelay caps how long a server-reported reset can hold back a request.
const maxServerDelay = 30 * time.Second

type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	info    *NormalizedRateLimitInfo
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
// A non-positive rps disables local pacing.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
		if burst <= 0 {
			burst = 1
		}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// UpdateRateLimits stores the latest limit info reported by the provider.
func (r *RateLimiter) UpdateRateLimits(info *NormalizedRateLimitInfo) {
	if info == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = info
}

// canProceed returns false if the provider reported an exhausted quota whose reset is still ahead.
func (r *RateLimiter) canProceed() bool {
	return r.delayBeforeNextRequest() == 0
}

// delayBeforeNextRequest calculates how long we must wait before the provider accepts
// another request, capped at maxServerDelay.
func (r *RateLimiter) delayBeforeNextRequest() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.info
	if info == nil || info.ResetRequestsAt == nil {
		return 0
	}
	if info.RemainingRequests != nil && *info.RemainingRequests > 0 {
		return 0
	}

	now := r.now()
	if !internal.IsInFuture(*info.ResetRequestsAt, now) {
		return 0
	}
	delay := time.Duration(*info.ResetRequestsAt-now.UnixMilli()) * time.Millisecond
	if delay > maxServerDelay {
		delay = maxServerDelay
	}
	return delay
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if !r.canProceed() {
		timer := time.NewTimer(r.delayBeforeNextRequest())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// GetRateLimitInfo returns a copy of the last limit info reported by the provider.
func (r *RateLimiter) GetRateLimitInfo() *NormalizedRateLimitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.info == nil {
		return nil
	}
	copyInfo := *r.info
	return &copyInfo
}
