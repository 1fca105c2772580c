package robloxbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnsupportedMethod is returned by Execute for any verb other than GET or PATCH.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// RequestExecutor performs a single Open Cloud call and folds every remote or
// transport failure into a tagged Result with no envelope.
type RequestExecutor struct {
	adapter  ProviderAdapter
	limiter  *RateLimiter
	timeout  time.Duration
	logger   *logrus.Entry
	recorder Recorder
}

func NewRequestExecutor(adapter ProviderAdapter, limiter *RateLimiter, timeout time.Duration, logger *logrus.Entry, recorder Recorder) *RequestExecutor {
	if limiter == nil {
		limiter = NewRateLimiter(0, 0)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RequestExecutor{
		adapter:  adapter,
		limiter:  limiter,
		timeout:  timeout,
		logger:   logger.WithField("component", "request-executor"),
		recorder: recorder,
	}
}

// Execute sends method to endpoint. body is JSON-encoded and sent only for PATCH.
// The returned error is non-nil only for a caller bug (an unsupported method);
// network and API failures are reported through Result.Failure.
func (re *RequestExecutor) Execute(ctx context.Context, method, endpoint string, body any) (Result, error) {
	verb := strings.ToUpper(method)
	if verb != http.MethodGet && verb != http.MethodPatch {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	req := &NormalizedRequest{
		Method:   verb,
		Endpoint: endpoint,
		Headers:  map[string]string{"Content-Type": "application/json"},
	}
	if verb == http.MethodPatch && body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			re.logger.WithError(err).Error("Error encoding Roblox API request body")
			return re.fail(verb, FailureEncode, 0, err, time.Now()), nil
		}
		req.Body = data
	}

	start := time.Now()
	// The limiter wait is bounded by the caller's ctx only; timeout covers the call itself.
	if err := re.limiter.Wait(ctx); err != nil {
		re.logger.WithError(err).Error("Error making Roblox API request: rate limiter wait aborted")
		return re.fail(verb, FailureTransport, 0, err, start), nil
	}

	ctx, cancel := context.WithTimeout(ctx, re.timeout)
	defer cancel()

	re.logger.WithFields(logrus.Fields{"method": verb, "endpoint": endpoint}).Debug("Sending request")
	resp, err := re.adapter.ExecuteRequest(ctx, req)
	if err != nil {
		re.logger.WithError(err).Error("Error making Roblox API request")
		return re.fail(verb, FailureTransport, 0, err, start), nil
	}

	if info, parseErr := re.adapter.ParseRateLimitInfo(resp); parseErr == nil && info != nil {
		re.limiter.UpdateRateLimits(info)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := FailureRemoteRejection
		if re.adapter.IsRateLimitError(resp) {
			kind = FailureRateLimited
		}
		re.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(resp.Data),
		}).Errorf("Roblox API Error: %d - %s", resp.StatusCode, string(resp.Data))
		return re.fail(verb, kind, resp.StatusCode, fmt.Errorf("roblox api error: %d", resp.StatusCode), start), nil
	}

	env, err := decodeEnvelope(resp.Data)
	if err != nil {
		re.logger.WithError(err).Error("Error making Roblox API request: invalid JSON response")
		return re.fail(verb, FailureDecode, resp.StatusCode, err, start), nil
	}

	re.recorder.ObserveRequest(verb, FailureNone.String(), time.Since(start))
	return Result{Envelope: env, Body: resp.Data, StatusCode: resp.StatusCode}, nil
}

func (re *RequestExecutor) fail(verb string, kind FailureKind, status int, err error, start time.Time) Result {
	re.recorder.ObserveRequest(verb, kind.String(), time.Since(start))
	return Result{Failure: kind, StatusCode: status, Err: err}
}

func decodeEnvelope(data []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env == nil {
		return nil, errors.New("decode response: empty JSON document")
	}
	return env, nil
}
