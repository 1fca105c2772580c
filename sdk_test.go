package robloxbridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	robloxbridge "github.com/opengovern/roblox-bridge"
	"github.com/opengovern/roblox-bridge/adapters"
	"github.com/opengovern/roblox-bridge/mock"
)

var sampleUpdate = robloxbridge.ScriptUpdate{
	UniverseID: 1,
	PlaceID:    2,
	InstanceID: "abc",
	Source:     `print("hello")`,
}

func TestUpdateScript_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		responses []mock.Response
		want      string
		kind      robloxbridge.OutcomeKind
		requests  int
	}{
		{
			name:      "path missing from PATCH response",
			responses: []mock.Response{mock.OK(`{"foo":"bar"}`)},
			want:      "Error: Operation path not found in PATCH response.",
			kind:      robloxbridge.OutcomeFailed,
			requests:  1,
		},
		{
			name:      "empty path",
			responses: []mock.Response{mock.OK(`{"path":""}`)},
			want:      "Error: Operation path not found in PATCH response.",
			kind:      robloxbridge.OutcomeFailed,
			requests:  1,
		},
		{
			name: "completed with response",
			responses: []mock.Response{
				mock.OK(`{"path":"operations/123"}`),
				mock.OK(`{"done":true,"response":{"status":"ok"}}`),
			},
			want:     "Script updated successfully! Final Response: {'status': 'ok'}",
			kind:     robloxbridge.OutcomeSucceeded,
			requests: 2,
		},
		{
			name: "response keys keep server order",
			responses: []mock.Response{
				mock.OK(`{"path":"operations/123"}`),
				mock.OK(`{"done":true,"response":{"z":1,"a":2}}`),
			},
			want:     "Script updated successfully! Final Response: {'z': 1, 'a': 2}",
			kind:     robloxbridge.OutcomeSucceeded,
			requests: 2,
		},
		{
			name: "completed with error",
			responses: []mock.Response{
				mock.OK(`{"path":"operations/123"}`),
				mock.OK(`{"done":true,"error":{"code":3,"message":"bad source"}}`),
			},
			want:     "Script update failed. Error: {'code': 3, 'message': 'bad source'}",
			kind:     robloxbridge.OutcomeRemoteError,
			requests: 2,
		},
		{
			name: "completed with neither field",
			responses: []mock.Response{
				mock.OK(`{"path":"operations/123"}`),
				mock.OK(`{"done":true}`),
			},
			want:     "Script update operation did not complete within the allowed time.",
			kind:     robloxbridge.OutcomeNotCompleted,
			requests: 2,
		},
		{
			name: "never completes",
			responses: []mock.Response{
				mock.OK(`{"path":"operations/123"}`),
				mock.OK(`{"done":false}`),
			},
			want:     "Script update operation did not complete within the allowed time.",
			kind:     robloxbridge.OutcomeNotCompleted,
			requests: 11,
		},
		{
			name:      "PATCH rejected",
			responses: []mock.Response{{StatusCode: 400, Body: `{"message":"invalid"}`}},
			want:      "Error: Failed to initiate script update.",
			kind:      robloxbridge.OutcomeFailed,
			requests:  1,
		},
		{
			name:      "PATCH transport failure",
			responses: []mock.Response{{Err: errors.New("no route to host")}},
			want:      "Error: Failed to initiate script update.",
			kind:      robloxbridge.OutcomeFailed,
			requests:  1,
		},
		{
			name: "polling never gets through",
			responses: []mock.Response{
				mock.OK(`{"path":"operations/123"}`),
				{Err: errors.New("connection reset")},
			},
			want:     "Error: Failed to poll for script update status.",
			kind:     robloxbridge.OutcomeFailed,
			requests: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := scripted(tt.responses...)
			bridge := newBridge(t, adapter, &sleepRecorder{})

			outcome := bridge.UpdateScriptOutcome(context.Background(), sampleUpdate)
			if outcome.Message != tt.want {
				t.Errorf("Message = %q, want %q", outcome.Message, tt.want)
			}
			if outcome.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", outcome.Kind, tt.kind)
			}
			if n := adapter.RequestCount(); n != tt.requests {
				t.Errorf("Expected %d requests, got %d", tt.requests, n)
			}
		})
	}
}

func TestUpdateScript_MissingAPIKey(t *testing.T) {
	adapter := &mock.MockAdapter{Responses: []mock.Response{mock.OK(`{"path":"operations/1"}`)}}
	bridge := newBridge(t, adapter, &sleepRecorder{})

	got := bridge.UpdateScript(context.Background(), sampleUpdate)
	if got != "Error: Roblox Open Cloud API Key is required." {
		t.Errorf("Unexpected message: %q", got)
	}
	if n := adapter.RequestCount(); n != 0 {
		t.Errorf("Expected zero network calls, got %d", n)
	}
}

func TestUpdateScript_PatchRequestShape(t *testing.T) {
	adapter := scripted(mock.OK(`{"path":"operations/9"}`), mock.OK(`{"done":true,"response":{}}`))
	bridge := newBridge(t, adapter, &sleepRecorder{})

	bridge.UpdateScript(context.Background(), robloxbridge.ScriptUpdate{
		UniverseID: 100,
		PlaceID:    200,
		InstanceID: "inst-1",
		Source:     "return 42",
	})

	reqs := adapter.Requests()
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(reqs))
	}
	patch := reqs[0]
	if patch.Method != http.MethodPatch {
		t.Errorf("Expected PATCH, got %s", patch.Method)
	}
	if patch.Endpoint != "/universes/100/places/200/instances/inst-1" {
		t.Errorf("Unexpected endpoint %s", patch.Endpoint)
	}

	var body map[string]any
	if err := json.Unmarshal(patch.Body, &body); err != nil {
		t.Fatalf("PATCH body is not JSON: %v", err)
	}
	want := map[string]any{
		"engineInstance": map[string]any{
			"Details": map[string]any{
				"Script": map[string]any{"Source": "return 42"},
			},
		},
	}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("PATCH body = %v, want %v", body, want)
	}

	if reqs[1].Method != http.MethodGet || reqs[1].Endpoint != "/operations/9" {
		t.Errorf("Unexpected poll request %s %s", reqs[1].Method, reqs[1].Endpoint)
	}
	if len(reqs[1].Body) != 0 {
		t.Errorf("Poll request carried a body: %q", reqs[1].Body)
	}
}

func TestUpdateScript_UnsupportedInstanceType(t *testing.T) {
	adapter := scripted(mock.OK(`{"path":"operations/1"}`))
	bridge := newBridge(t, adapter, &sleepRecorder{})

	upd := sampleUpdate
	upd.InstanceType = "ModuleScript"
	outcome := bridge.UpdateScriptOutcome(context.Background(), upd)
	if outcome.Kind != robloxbridge.OutcomeInvalid {
		t.Errorf("Kind = %s, want invalid", outcome.Kind)
	}
	if !strings.Contains(outcome.Message, "ModuleScript") {
		t.Errorf("Message should name the type, got %q", outcome.Message)
	}
	if n := adapter.RequestCount(); n != 0 {
		t.Errorf("Expected zero network calls, got %d", n)
	}
}

func TestUpdateScript_RepeatedUpdatesAreIndependent(t *testing.T) {
	adapter := scripted(
		mock.OK(`{"path":"operations/1"}`),
		mock.OK(`{"done":true,"response":{"n":1}}`),
		mock.OK(`{"path":"operations/2"}`),
		mock.OK(`{"done":true,"response":{"n":2}}`),
	)
	bridge := newBridge(t, adapter, &sleepRecorder{})

	first := bridge.UpdateScript(context.Background(), sampleUpdate)
	second := bridge.UpdateScript(context.Background(), sampleUpdate)
	if first == second {
		t.Errorf("Expected distinct outcomes, both were %q", first)
	}

	reqs := adapter.Requests()
	if len(reqs) != 4 {
		t.Fatalf("Expected 4 requests, got %d", len(reqs))
	}
	patches := 0
	for _, r := range reqs {
		if r.Method == http.MethodPatch {
			patches++
		}
	}
	if patches != 2 {
		t.Errorf("Expected 2 PATCH calls, got %d", patches)
	}
	if reqs[3].Endpoint != "/operations/2" {
		t.Errorf("Second update polled %s, want /operations/2", reqs[3].Endpoint)
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	polls    int
	requests int
}

func (c *countingRecorder) ObserveRequest(method, failure string, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
}

func (c *countingRecorder) ObservePoll(attempts int, failure string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
}

func (c *countingRecorder) ObserveOutcome(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[kind]++
}

func TestUpdateScript_RecordsMetrics(t *testing.T) {
	adapter := scripted(mock.OK(`{"path":"operations/1"}`), mock.OK(`{"done":true,"response":{}}`))
	rec := &countingRecorder{}
	bridge := newBridge(t, adapter, &sleepRecorder{}, robloxbridge.WithRecorder(rec))

	bridge.UpdateScript(context.Background(), sampleUpdate)

	if rec.outcomes["succeeded"] != 1 {
		t.Errorf("Expected one succeeded outcome, got %v", rec.outcomes)
	}
	if rec.requests != 2 {
		t.Errorf("Expected 2 observed requests, got %d", rec.requests)
	}
	if rec.polls != 1 {
		t.Errorf("Expected 1 observed poll, got %d", rec.polls)
	}
}

func TestUpdateScript_AgainstHTTPServer(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "live-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/universes/10/places/20/instances/script-1":
			w.Write([]byte(`{"path":"universes/10/places/20/instances/script-1/operations/op-1","done":false}`))
		case r.Method == http.MethodGet && r.URL.Path == "/universes/10/places/20/instances/script-1/operations/op-1":
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			if n < 3 {
				w.Write([]byte(`{"done":false}`))
				return
			}
			w.Write([]byte(`{"done":true,"response":{"engineInstance":{"Id":"script-1","Name":"Main"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sleeper := &sleepRecorder{}
	bridge := newBridge(t, &adapters.RobloxAdapter{APIKey: "live-key", BaseURL: srv.URL}, sleeper)

	got := bridge.UpdateScript(context.Background(), robloxbridge.ScriptUpdate{
		UniverseID: 10,
		PlaceID:    20,
		InstanceID: "script-1",
		Source:     "print(1)",
	})
	want := "Script updated successfully! Final Response: {'engineInstance': {'Id': 'script-1', 'Name': 'Main'}}"
	if got != want {
		t.Errorf("UpdateScript() = %q, want %q", got, want)
	}
	if n := sleeper.count(); n != 2 {
		t.Errorf("Expected 2 delays, got %d", n)
	}
}

func TestScriptUpdate_EndpointEscapesInstanceID(t *testing.T) {
	upd := robloxbridge.ScriptUpdate{UniverseID: 1, PlaceID: 2, InstanceID: "a/b c"}
	if got := upd.Endpoint(); got != "/universes/1/places/2/instances/a%2Fb%20c" {
		t.Errorf("Endpoint() = %s", got)
	}
}

func TestUpdateScript_RateLimitedByServer(t *testing.T) {
	tests := []struct {
		name     string
		adapter  *mock.MockAdapter
		want     string
		requests int
	}{
		{
			name:     "PATCH rate limited",
			adapter:  &mock.MockAdapter{APIKey: "test-key", ShouldReturn429Always: true},
			want:     "Error: Failed to initiate script update.",
			requests: 1,
		},
		{
			name: "every poll rate limited",
			adapter: &mock.MockAdapter{
				APIKey:                 "test-key",
				Responses:              []mock.Response{mock.OK(`{"path":"operations/1"}`)},
				RequestsUntilRateLimit: 1,
			},
			want:     "Error: Failed to poll for script update status.",
			requests: 11,
		},
		{
			name: "rate limited then not done",
			adapter: &mock.MockAdapter{
				APIKey: "test-key",
				Responses: []mock.Response{
					mock.OK(`{"path":"operations/1"}`),
					mock.OK(`{"done":false}`),
				},
				RequestsUntilRateLimit: 3,
			},
			want:     "Script update operation did not complete within the allowed time.",
			requests: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := newBridge(t, tt.adapter, &sleepRecorder{})
			if got := bridge.UpdateScript(context.Background(), sampleUpdate); got != tt.want {
				t.Errorf("UpdateScript() = %q, want %q", got, tt.want)
			}
			if n := tt.adapter.RequestCount(); n != tt.requests {
				t.Errorf("Expected %d requests, got %d", tt.requests, n)
			}
		})
	}
}

func TestUpdateScript_ConcurrentInvocations(t *testing.T) {
	const workers = 20

	var mu sync.Mutex
	patched := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-limit", "100")
		w.Header().Set("x-ratelimit-remaining", "50")
		w.Header().Set("x-ratelimit-reset", "1")

		switch {
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/universes/1/places/2/instances/"):
			id := strings.TrimPrefix(r.URL.Path, "/universes/1/places/2/instances/")
			mu.Lock()
			patched[id]++
			mu.Unlock()
			w.Write([]byte(`{"path":"operations/` + id + `"}`))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/operations/"):
			id := strings.TrimPrefix(r.URL.Path, "/operations/")
			w.Write([]byte(`{"done":true,"response":{"id":"` + id + `"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	bridge := newBridge(t, &adapters.RobloxAdapter{APIKey: "k", BaseURL: srv.URL}, &sleepRecorder{})

	got := make([]robloxbridge.Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = bridge.UpdateScriptOutcome(context.Background(), robloxbridge.ScriptUpdate{
				UniverseID: 1,
				PlaceID:    2,
				InstanceID: fmt.Sprintf("script-%d", i),
				Source:     fmt.Sprintf("print(%d)", i),
			})
		}(i)
	}
	wg.Wait()

	for i, outcome := range got {
		want := fmt.Sprintf("Script updated successfully! Final Response: {'id': 'script-%d'}", i)
		if outcome.Kind != robloxbridge.OutcomeSucceeded || outcome.Message != want {
			t.Errorf("Invocation %d = %s %q, want %q", i, outcome.Kind, outcome.Message, want)
		}
	}
	if len(patched) != workers {
		t.Errorf("Expected %d distinct instances patched, got %d", workers, len(patched))
	}
	for id, n := range patched {
		if n != 1 {
			t.Errorf("Instance %s patched %d times", id, n)
		}
	}
	if info := bridge.GetRateLimitInfo(); info == nil || info.RemainingRequests == nil || *info.RemainingRequests != 50 {
		t.Errorf("Expected shared limiter to hold the reported quota, got %+v", info)
	}
}

func TestSetDebug_DefaultLoggerIsPrivate(t *testing.T) {
	std := logrus.StandardLogger()
	before := std.GetLevel()
	defer std.SetLevel(before)

	bridge := robloxbridge.NewRobloxBridge(scripted(), nil)
	bridge.SetDebug(true)
	if got := std.GetLevel(); got != before {
		t.Errorf("SetDebug changed the standard logger level from %s to %s", before, got)
	}
	if !bridge.Debug {
		t.Error("Expected Debug to be set")
	}
}

func TestSetDebug_SuppliedLogger(t *testing.T) {
	logger := quietLogger()
	bridge := robloxbridge.NewRobloxBridge(scripted(), nil, robloxbridge.WithLogger(logger))

	bridge.SetDebug(true)
	if got := logger.Logger.GetLevel(); got != logrus.DebugLevel {
		t.Errorf("Level = %s, want debug", got)
	}
	bridge.SetDebug(false)
	if got := logger.Logger.GetLevel(); got != logrus.InfoLevel {
		t.Errorf("Level = %s, want info", got)
	}
}
