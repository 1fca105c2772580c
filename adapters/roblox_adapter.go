package adapters

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/oauth2"

	robloxbridge "github.com/opengovern/roblox-bridge"
	"github.com/opengovern/roblox-bridge/internal"
)

const RobloxAPIBase = "https://apis.roblox.com/cloud/v2"

// RobloxAdapter talks to the Open Cloud v2 API. Every call gets its own client and
// transport, which are torn down before ExecuteRequest returns.
type RobloxAdapter struct {
	APIKey     string // sent as x-api-key
	OAuthToken string // optional access token, sent as a bearer Authorization header
	BaseURL    string // defaults to RobloxAPIBase

	// Transport overrides the per-call transport. Mostly useful for tests.
	Transport http.RoundTripper
}

func (r *RobloxAdapter) HasCredential() bool {
	return r.APIKey != "" || r.OAuthToken != ""
}

func (r *RobloxAdapter) baseURL() string {
	if r.BaseURL == "" {
		return RobloxAPIBase
	}
	return strings.TrimRight(r.BaseURL, "/")
}

// newClient builds the client for one call and the func that releases its connections.
func (r *RobloxAdapter) newClient() (*http.Client, func()) {
	var rt http.RoundTripper = r.Transport
	release := func() {}
	if rt == nil {
		t := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		// Open Cloud negotiates h2; fall back to HTTP/1.1 if the transport can't be upgraded.
		_ = http2.ConfigureTransport(t)
		rt = t
		release = t.CloseIdleConnections
	}
	if r.OAuthToken != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: r.OAuthToken}),
			Base:   rt,
		}
	}
	return &http.Client{Transport: rt}, release
}

func (r *RobloxAdapter) ExecuteRequest(ctx context.Context, req *robloxbridge.NormalizedRequest) (*robloxbridge.NormalizedResponse, error) {
	client, release := r.newClient()
	defer release()

	fullURL := r.baseURL() + req.Endpoint

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if r.APIKey != "" {
		httpReq.Header.Set("x-api-key", r.APIKey)
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]string)
	for k, vals := range resp.Header {
		if len(vals) > 0 {
			headers[strings.ToLower(k)] = vals[0]
		}
	}

	return &robloxbridge.NormalizedResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Data:       data,
	}, nil
}

// ParseRateLimitInfo reads the x-ratelimit-* headers and, on throttled responses,
// retry-after. Reset values are relative durations and become absolute timestamps.
func (r *RobloxAdapter) ParseRateLimitInfo(resp *robloxbridge.NormalizedResponse) (*robloxbridge.NormalizedRateLimitInfo, error) {
	h := resp.Headers
	parseInt := func(key string) *int {
		if val, ok := h[key]; ok {
			if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return &i
			}
		}
		return nil
	}

	now := time.Now()
	info := &robloxbridge.NormalizedRateLimitInfo{
		MaxRequests:       parseInt("x-ratelimit-limit"),
		RemainingRequests: parseInt("x-ratelimit-remaining"),
		ResetRequestsAt:   internal.ResetAtMs(h["x-ratelimit-reset"], now),
	}

	if future := internal.ResetAtMs(h["retry-after"], now); future != nil {
		if info.ResetRequestsAt == nil || *future > *info.ResetRequestsAt {
			info.ResetRequestsAt = future
		}
		if info.RemainingRequests == nil {
			zero := 0
			info.RemainingRequests = &zero
		}
	}

	if info.MaxRequests == nil && info.RemainingRequests == nil && info.ResetRequestsAt == nil {
		return nil, nil
	}
	return info, nil
}

func (r *RobloxAdapter) IsRateLimitError(resp *robloxbridge.NormalizedResponse) bool {
	return resp.StatusCode == http.StatusTooManyRequests
}
