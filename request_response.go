package robloxbridge

import "encoding/json"

type NormalizedRequest struct {
	Method   string
	Endpoint string
	Headers  map[string]string
	Body     []byte
}

type NormalizedResponse struct {
	StatusCode int
	Headers    map[string]string
	Data       []byte
}

type NormalizedRateLimitInfo struct {
	MaxRequests       *int
	RemainingRequests *int
	ResetRequestsAt   *int64
}

// Envelope is the decoded JSON body of an Open Cloud response. Numbers are
// kept as json.Number so they render the way the API sent them.
type Envelope map[string]any

// Done reports whether the envelope's "done" field is truthy.
func (e Envelope) Done() bool {
	v, ok := e["done"]
	return ok && truthy(v)
}

// String returns the value under key when it is a string.
func (e Envelope) String(key string) (string, bool) {
	v, ok := e[key].(string)
	return v, ok
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// FailureKind tags why a Result carries no envelope.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRemoteRejection
	FailureRateLimited
	FailureTransport
	FailureEncode
	FailureDecode
	FailureNotCompleted
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRemoteRejection:
		return "remote_rejection"
	case FailureRateLimited:
		return "rate_limited"
	case FailureTransport:
		return "transport"
	case FailureEncode:
		return "encode"
	case FailureDecode:
		return "decode"
	case FailureNotCompleted:
		return "not_completed"
	case FailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single executor call or of a polling sequence.
// Envelope is nil whenever Failure is not FailureNone.
type Result struct {
	Envelope   Envelope
	Body       []byte // raw response body behind Envelope
	Failure    FailureKind
	StatusCode int
	Err        error
}

// OK reports whether the result carries a usable envelope.
func (r Result) OK() bool {
	return r.Failure == FailureNone && r.Envelope != nil
}
