package robloxbridge_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	robloxbridge "github.com/opengovern/roblox-bridge"
	"github.com/opengovern/roblox-bridge/mock"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// sleepRecorder stands in for the real delay and remembers every requested duration.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newExecutor(adapter robloxbridge.ProviderAdapter, timeout time.Duration) *robloxbridge.RequestExecutor {
	return robloxbridge.NewRequestExecutor(adapter, robloxbridge.NewRateLimiter(0, 0), timeout, quietLogger(), nil)
}

func newBridge(t *testing.T, adapter robloxbridge.ProviderAdapter, sleeper *sleepRecorder, opts ...robloxbridge.Option) *robloxbridge.RobloxBridge {
	t.Helper()
	opts = append([]robloxbridge.Option{
		robloxbridge.WithLogger(quietLogger()),
		robloxbridge.WithSleeper(sleeper.sleep),
	}, opts...)
	return robloxbridge.NewRobloxBridge(adapter, robloxbridge.DefaultProviderConfig(), opts...)
}

func scripted(responses ...mock.Response) *mock.MockAdapter {
	return &mock.MockAdapter{APIKey: "test-key", Responses: responses}
}
