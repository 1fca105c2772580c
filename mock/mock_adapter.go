package mock

import (
	"context"
	"errors"
	"sync"

	robloxbridge "github.com/opengovern/roblox-bridge"
)

// ErrExhausted is returned when a MockAdapter has no scripted response left.
var ErrExhausted = errors.New("mock: no scripted response left")

// Response is one scripted reply. A non-nil Err simulates a transport fault.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Err        error
}

// OK is a 200 reply carrying body.
func OK(body string) Response {
	return Response{StatusCode: 200, Body: body}
}

// MockAdapter replays scripted responses in order and records every request it sees.
// Once the script runs out the last response repeats, unless the script is empty.
type MockAdapter struct {
	APIKey    string
	Responses []Response

	RequestsUntilRateLimit int  // Reply 429 after this many requests, if > 0
	ShouldReturn429Always  bool // If true, always reply 429

	mu                  sync.Mutex
	requests            []robloxbridge.NormalizedRequest
	currentRequestCount int
}

func (m *MockAdapter) HasCredential() bool {
	return m.APIKey != ""
}

func (m *MockAdapter) ExecuteRequest(ctx context.Context, req *robloxbridge.NormalizedRequest) (*robloxbridge.NormalizedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, *req)
	idx := m.currentRequestCount
	m.currentRequestCount++

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.ShouldReturn429Always || (m.RequestsUntilRateLimit > 0 && m.currentRequestCount > m.RequestsUntilRateLimit) {
		return &robloxbridge.NormalizedResponse{
			StatusCode: 429,
			Headers:    map[string]string{},
			Data:       []byte(`{"error":"Rate limited"}`),
		}, nil
	}

	if len(m.Responses) == 0 {
		return nil, ErrExhausted
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	r := m.Responses[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	headers := r.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return &robloxbridge.NormalizedResponse{
		StatusCode: r.StatusCode,
		Headers:    headers,
		Data:       []byte(r.Body),
	}, nil
}

func (m *MockAdapter) ParseRateLimitInfo(resp *robloxbridge.NormalizedResponse) (*robloxbridge.NormalizedRateLimitInfo, error) {
	return nil, nil
}

func (m *MockAdapter) IsRateLimitError(resp *robloxbridge.NormalizedResponse) bool {
	return resp.StatusCode == 429
}

// Requests returns a copy of the requests received so far.
func (m *MockAdapter) Requests() []robloxbridge.NormalizedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]robloxbridge.NormalizedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns how many requests reached the adapter.
func (m *MockAdapter) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentRequestCount
}
