// sdk.go
// ------
// The sdk.go file contains the core RobloxBridge struct and its methods.
// This is the main entry point of the library.
//
// Key functionalities include:
// - Initializing the bridge with NewRobloxBridge()
// - Updating a script instance via UpdateScript() / UpdateScriptOutcome()
// - Retrieving the rate limit info last reported by Open Cloud
//
// The RobloxBridge relies on a RequestExecutor for single calls and an
// OperationPoller for the long-running operation each update starts.
package robloxbridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// InstanceType names the engine class whose Details block a PATCH writes to.
type InstanceType string

// Only Script has a confirmed Details layout; ModuleScript and LocalScript are
// rejected until their schemas are verified against Open Cloud.
const InstanceTypeScript InstanceType = "Script"

var ErrUnsupportedInstanceType = errors.New("unsupported instance type")

// ScriptUpdate identifies a script instance and the source to write into it.
type ScriptUpdate struct {
	UniverseID   int64
	PlaceID      int64
	InstanceID   string
	Source       string
	InstanceType InstanceType // defaults to InstanceTypeScript
}

// Endpoint returns the instance path relative to the API base.
func (u ScriptUpdate) Endpoint() string {
	return fmt.Sprintf("/universes/%d/places/%d/instances/%s", u.UniverseID, u.PlaceID, url.PathEscape(u.InstanceID))
}

// PatchBody builds the nested engineInstance document Open Cloud expects.
func (u ScriptUpdate) PatchBody() (map[string]any, error) {
	kind := u.InstanceType
	if kind == "" {
		kind = InstanceTypeScript
	}
	if kind != InstanceTypeScript {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInstanceType, kind)
	}
	return map[string]any{
		"engineInstance": map[string]any{
			"Details": map[string]any{
				string(kind): map[string]any{
					"Source": u.Source,
				},
			},
		},
	}, nil
}

type RobloxBridge struct {
	mu       sync.Mutex
	adapter  ProviderAdapter
	limiter  *RateLimiter
	executor *RequestExecutor
	poller   *OperationPoller
	logger   *logrus.Entry
	recorder Recorder

	Debug bool // If true, log at debug level
}

// Option customizes a RobloxBridge at construction.
type Option func(*bridgeOptions)

type bridgeOptions struct {
	logger   *logrus.Entry
	recorder Recorder
	sleep    Sleeper
}

// WithLogger sets the logger the bridge and its components write to. The caller
// keeps ownership of its level; SetDebug changes it for every user of that logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *bridgeOptions) { o.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *bridgeOptions) { o.recorder = recorder }
}

// WithSleeper replaces the delay used between poll attempts.
func WithSleeper(sleep Sleeper) Option {
	return func(o *bridgeOptions) { o.sleep = sleep }
}

func NewRobloxBridge(adapter ProviderAdapter, config *ProviderConfig, opts ...Option) *RobloxBridge {
	o := &bridgeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logrus.NewEntry(logrus.New())
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}

	cfg := config.withDefaults()
	limiter := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	executor := NewRequestExecutor(adapter, limiter, cfg.RequestTimeout, o.logger, o.recorder)

	b := &RobloxBridge{
		adapter:  adapter,
		limiter:  limiter,
		executor: executor,
		poller:   NewOperationPoller(executor, cfg.PollAttempts, cfg.PollInterval, o.sleep),
		logger:   o.logger.WithField("component", "roblox-bridge"),
		recorder: o.recorder,
	}
	b.logger.Debugf("Bridge configured: %+v", *cfg)
	return b
}

// SetDebug enables or disables debug logging. It sets the level on the underlying
// *logrus.Logger, which the bridge owns unless one was passed via WithLogger.
func (b *RobloxBridge) SetDebug(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Debug = enabled
	if enabled {
		b.logger.Logger.SetLevel(logrus.DebugLevel)
	} else if b.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		b.logger.Logger.SetLevel(logrus.InfoLevel)
	}
}

// UpdateScript writes upd.Source into the script instance and waits for the
// resulting operation. It always returns a human-readable status message.
func (b *RobloxBridge) UpdateScript(ctx context.Context, upd ScriptUpdate) string {
	return b.UpdateScriptOutcome(ctx, upd).Message
}

// UpdateScriptOutcome is UpdateScript with the outcome classification kept.
func (b *RobloxBridge) UpdateScriptOutcome(ctx context.Context, upd ScriptUpdate) Outcome {
	log := b.logger.WithFields(logrus.Fields{
		"invocation": uuid.NewString(),
		"universe":   upd.UniverseID,
		"place":      upd.PlaceID,
		"instance":   upd.InstanceID,
	})

	outcome := b.updateScript(ctx, upd, log)
	b.recorder.ObserveOutcome(outcome.Kind.String())
	log.WithField("outcome", outcome.Kind.String()).Info(outcome.Message)
	return outcome
}

func (b *RobloxBridge) updateScript(ctx context.Context, upd ScriptUpdate, log *logrus.Entry) Outcome {
	if b.adapter == nil || !b.adapter.HasCredential() {
		return Outcome{Kind: OutcomeInvalid, Message: msgMissingAPIKey}
	}

	body, err := upd.PatchBody()
	if err != nil {
		return Outcome{Kind: OutcomeInvalid, Message: fmt.Sprintf(msgUnsupportedInstance, upd.InstanceType)}
	}

	res, err := b.executor.Execute(ctx, http.MethodPatch, upd.Endpoint(), body)
	if err != nil {
		log.WithError(err).Error("PATCH rejected locally")
		return Outcome{Kind: OutcomeFailed, Message: msgInitiateFailed}
	}
	if !res.OK() {
		return Outcome{Kind: OutcomeFailed, Message: msgInitiateFailed}
	}

	operationPath, ok := res.Envelope.String("path")
	if !ok || operationPath == "" {
		return Outcome{Kind: OutcomeFailed, Message: msgPathNotFound}
	}
	log.WithField("operation", operationPath).Debug("Update accepted, polling operation")

	return translatePoll(b.poller.Poll(ctx, operationPath))
}

// GetRateLimitInfo returns the current known rate limit info reported by Open Cloud.
func (b *RobloxBridge) GetRateLimitInfo() *NormalizedRateLimitInfo {
	return b.limiter.GetRateLimitInfo()
}
