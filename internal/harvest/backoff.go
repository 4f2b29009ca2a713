package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/metrics"
)

// Resource names the kind of remote item a call was for. It only affects
// logging and metrics; the backoff behavior is identical for all kinds.
type Resource string

// Resource kinds exercised by the orchestrators.
const (
	ResourcePreset      Resource = "preset"
	ResourceForumIndex  Resource = "forum-index"
	ResourceThreadIndex Resource = "thread-index"
	ResourceAppList     Resource = "application-list"
	ResourceApplication Resource = "application"
)

// ErrAborted wraps the remote error that terminated a strict-mode run.
var ErrAborted = errors.New("harvest aborted")

// maxAttempts is how many times a retryable call is tried before the
// keep-going flag decides between skipping and aborting.
const maxAttempts = 5

// Decision is the outcome of classifying a failed remote call.
type Decision int

// Possible decisions.
const (
	DecisionRetry Decision = iota
	DecisionSkip
	DecisionAbort
)

// permanentSignals are error substrings meaning the item itself is gone
// or off limits. Retrying cannot fix these.
var permanentSignals = []string{
	"noaccess",
	"no access",
	"thread has been moved",
	"empty result",
}

func isPermanent(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, sig := range permanentSignals {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}

// RetryDelay returns the sleep before retrying after attempt n failed.
// Rate limiting backs off quadratically; everything else waits a flat 30s.
func RetryDelay(err error, attempt int) time.Duration {
	if isRateLimited(err) {
		return time.Duration(30+60*attempt*attempt) * time.Second
	}
	return 30 * time.Second
}

// Policy turns failed remote calls into retry/skip/abort decisions. One
// Policy instance serves every resource kind in a run.
type Policy struct {
	keepGoing bool
	pause     PauseFunc
	logger    *zap.Logger
}

// NewPolicy builds a Policy. keepGoing selects lenient mode: items whose
// retries are exhausted are skipped instead of aborting the run. A nil
// pause sleeps for real.
func NewPolicy(keepGoing bool, pause PauseFunc, logger *zap.Logger) *Policy {
	if pause == nil {
		pause = SleepPause
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{keepGoing: keepGoing, pause: pause, logger: logger}
}

// Decide classifies err for the given attempt (starting at 1) and returns
// the decision plus the sleep to apply before a retry.
func (p *Policy) Decide(err error, attempt int) (Decision, time.Duration) {
	if isPermanent(err) {
		return DecisionSkip, 0
	}
	if attempt >= maxAttempts {
		if p.keepGoing {
			return DecisionSkip, 0
		}
		return DecisionAbort, 0
	}
	return DecisionRetry, RetryDelay(err, attempt)
}

// Next logs and applies the decision for a failed call, sleeping before a
// retry. It returns the decision so the caller can act on it.
func (p *Policy) Next(ctx context.Context, res Resource, id string, err error, attempt int) Decision {
	decision, delay := p.Decide(err, attempt)
	fields := []zap.Field{
		zap.String("resource", string(res)),
		zap.String("id", id),
		zap.Int("attempt", attempt),
		zap.Error(err),
	}
	switch decision {
	case DecisionSkip:
		metrics.IncItemSkipped(string(res))
		p.logger.Warn("skipping item", fields...)
	case DecisionAbort:
		p.logger.Error("retries exhausted, aborting run", fields...)
	case DecisionRetry:
		metrics.IncRPCRetry(string(res))
		if isRateLimited(err) {
			metrics.IncRateLimit(string(res))
			p.logger.Warn("remote rate-limited us, backing off",
				append(fields, zap.Duration("sleep", delay))...)
		} else {
			p.logger.Warn("transient remote error, retrying",
				append(fields, zap.Duration("sleep", delay))...)
		}
		p.pause(ctx, delay)
	}
	return decision
}

// fetchRetry runs fn under the policy until it succeeds, is skipped, or
// aborts the run. ok is false when the item was skipped.
func fetchRetry[T any](ctx context.Context, p *Policy, res Resource, id string, fn func(context.Context) (T, error)) (value T, ok bool, err error) {
	var zero T
	for attempt := 1; ; attempt++ {
		v, callErr := fn(ctx)
		if callErr == nil {
			metrics.IncRPCCall(string(res), "ok")
			return v, true, nil
		}
		metrics.IncRPCCall(string(res), "error")
		switch p.Next(ctx, res, id, callErr, attempt) {
		case DecisionSkip:
			return zero, false, nil
		case DecisionAbort:
			return zero, false, fmt.Errorf("%w: %s %s: %w", ErrAborted, res, id, callErr)
		}
		if ctx.Err() != nil {
			return zero, false, ctx.Err()
		}
	}
}
