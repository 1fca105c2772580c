package robloxbridge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Sleeper suspends the caller for d, returning early with ctx.Err() if ctx ends first.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OperationPoller queries a long-running operation until it reports done or the
// attempt budget runs out. Attempts are strictly sequential with a fixed delay.
type OperationPoller struct {
	executor    *RequestExecutor
	maxAttempts int
	interval    time.Duration
	sleep       Sleeper
	logger      *logrus.Entry
	recorder    Recorder
}

func NewOperationPoller(executor *RequestExecutor, maxAttempts int, interval time.Duration, sleep Sleeper) *OperationPoller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}
	if sleep == nil {
		sleep = sleepContext
	}
	return &OperationPoller{
		executor:    executor,
		maxAttempts: maxAttempts,
		interval:    interval,
		sleep:       sleep,
		logger:      executor.logger.WithField("component", "operation-poller"),
		recorder:    executor.recorder,
	}
}

// Poll GETs operationPath (relative to the API base) until its envelope is done.
//
// When the budget is exhausted the result carries no envelope. It is tagged
// FailureNotCompleted if at least one attempt returned an envelope, otherwise it
// keeps the failure of the last attempt.
func (p *OperationPoller) Poll(ctx context.Context, operationPath string) Result {
	endpoint := "/" + strings.TrimLeft(operationPath, "/")
	log := p.logger.WithField("operation", operationPath)

	var last Result
	sawEnvelope := false
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res, err := p.executor.Execute(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			// unreachable for GET
			return p.finish(attempt, Result{Failure: FailureTransport, Err: err})
		}
		if res.OK() {
			sawEnvelope = true
			if res.Envelope.Done() {
				log.WithField("attempt", attempt).Debug("Operation completed")
				return p.finish(attempt, res)
			}
		}
		last = res

		if attempt == p.maxAttempts {
			break
		}
		log.WithField("attempt", attempt).Debugf("Operation not done, waiting %v", p.interval)
		if err := p.sleep(ctx, p.interval); err != nil {
			log.WithError(err).Warn("Polling aborted")
			return p.finish(attempt, Result{Failure: FailureCanceled, Err: err})
		}
	}

	if sawEnvelope {
		log.Warnf("Operation did not complete after %d attempts", p.maxAttempts)
		return p.finish(p.maxAttempts, Result{
			Failure: FailureNotCompleted,
			Err:     fmt.Errorf("operation %s not done after %d attempts", operationPath, p.maxAttempts),
		})
	}
	return p.finish(p.maxAttempts, Result{Failure: last.Failure, StatusCode: last.StatusCode, Err: last.Err})
}

func (p *OperationPoller) finish(attempts int, res Result) Result {
	p.recorder.ObservePoll(attempts, res.Failure.String())
	return res
}
