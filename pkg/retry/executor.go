// Package retry provides retry executor implementation
package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jzx17/crmclient/pkg/types"
)

// Executor implements retry execution logic
type Executor struct {
	policy       Policy
	eventHandler EventHandler
	clock        types.Clock

	statsMu sync.RWMutex
	stats   Stats
}

// ExecuteFunc is the function type to retry
type ExecuteFunc[T any] func(ctx context.Context) (T, error)

// Stats is a snapshot of retry statistics
type Stats struct {
	TotalAttempts   int64         // total attempt count
	TotalRetries    int64         // total retry count
	TotalSuccesses  int64         // total success count
	TotalFailures   int64         // total failure count
	LastRetryTime   time.Time     // last retry time
	TotalRetryDelay time.Duration // total retry delay time
}

// EventHandler handles retry events
type EventHandler interface {
	OnRetryAttempt(ctx context.Context, name string, attempt int, err error, delay time.Duration)
	OnRetrySuccess(ctx context.Context, name string, attempt int, duration time.Duration)
	OnRetryFailure(ctx context.Context, name string, attempt int, err error)
	OnMaxAttemptsReached(ctx context.Context, name string, attempt int, err error)
}

// NewExecutor creates a retry executor
func NewExecutor(policy Policy, opts ...ExecutorOption) *Executor {
	executor := &Executor{
		policy: policy.normalized(),
		clock:  types.NewRealClock(),
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Policy returns the normalised policy the executor runs with
func (r *Executor) Policy() Policy {
	return r.policy
}

// Do runs fn under policy with a throwaway executor
func Do[T any](ctx context.Context, policy Policy, fn ExecuteFunc[T]) (T, error) {
	return Execute(NewExecutor(policy), ctx, fn)
}

// Execute executes a function with retry logic
func Execute[T any](r *Executor, ctx context.Context, fn ExecuteFunc[T]) (T, error) {
	return ExecuteWithName(r, ctx, "default", fn)
}

// ExecuteWithName executes a function with retry logic (with name for events).
// The error of the last attempt is returned unchanged.
func ExecuteWithName[T any](r *Executor, ctx context.Context, name string, fn ExecuteFunc[T]) (T, error) {
	var zero T
	policy := r.policy
	maxAttempts := policy.MaxAttempts()

	for attempt := 1; ; attempt++ {
		// check if context is cancelled
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		r.updateStats(func(stats *Stats) {
			stats.TotalAttempts++
		})

		// execute function
		executeStart := r.clock.Now()
		result, err := fn(ctx)
		executeDuration := r.clock.Since(executeStart)

		// execution successful
		if err == nil {
			r.updateStats(func(stats *Stats) {
				stats.TotalSuccesses++
				if attempt > 1 {
					stats.TotalRetries++
				}
			})

			if r.eventHandler != nil && attempt > 1 {
				r.eventHandler.OnRetrySuccess(ctx, name, attempt, executeDuration)
			}

			return result, nil
		}

		exhausted := attempt >= maxAttempts
		if exhausted || !policy.ShouldRetry(err, attempt) {
			r.updateStats(func(stats *Stats) {
				stats.TotalFailures++
				if attempt > 1 {
					stats.TotalRetries++
				}
			})

			if r.eventHandler != nil {
				if exhausted && maxAttempts > 1 {
					r.eventHandler.OnMaxAttemptsReached(ctx, name, attempt, err)
				} else {
					r.eventHandler.OnRetryFailure(ctx, name, attempt, err)
				}
			}

			return zero, err
		}

		// calculate delay time, a server-supplied retry-after acts as a floor
		delay := policy.NextDelay(attempt)
		if retryAfter := types.GetRetryDelay(err); retryAfter > delay {
			delay = min(retryAfter, policy.MaxDelay)
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt, delay)
		}
		if r.eventHandler != nil {
			r.eventHandler.OnRetryAttempt(ctx, name, attempt, err, delay)
		}

		r.updateStats(func(stats *Stats) {
			stats.LastRetryTime = r.clock.Now()
			stats.TotalRetryDelay += delay
		})

		// wait for retry delay
		if delay > 0 {
			timer := r.clock.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C():
				// continue retrying
			}
		}
	}
}

// GetStats gets retry statistics
func (r *Executor) GetStats() Stats {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return r.stats
}

// ResetStats resets statistics
func (r *Executor) ResetStats() {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats = Stats{}
}

// updateStats updates statistics (thread-safe)
func (r *Executor) updateStats(fn func(*Stats)) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	fn(&r.stats)
}

// ExecutorOption is a configuration option for retry executor
type ExecutorOption func(*Executor)

// WithEventHandler sets the event handler
func WithEventHandler(handler EventHandler) ExecutorOption {
	return func(r *Executor) {
		r.eventHandler = handler
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) ExecutorOption {
	return func(r *Executor) {
		r.clock = types.OrRealClock(clock)
	}
}

// LogEventHandler reports retry events to a structured logger
type LogEventHandler struct {
	logger *slog.Logger
}

// NewLogEventHandler creates a slog-backed event handler, slog.Default() when logger is nil
func NewLogEventHandler(logger *slog.Logger) *LogEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventHandler{logger: logger}
}

// OnRetryAttempt handles retry attempt events
func (h *LogEventHandler) OnRetryAttempt(ctx context.Context, name string, attempt int, err error, delay time.Duration) {
	h.logger.WarnContext(ctx, "retrying operation",
		"operation", name,
		"attempt", attempt,
		"delay", delay,
		"status_code", types.StatusCode(err),
		"error", err)
}

// OnRetrySuccess handles retry success events
func (h *LogEventHandler) OnRetrySuccess(ctx context.Context, name string, attempt int, duration time.Duration) {
	h.logger.DebugContext(ctx, "operation succeeded after retry",
		"operation", name,
		"attempt", attempt,
		"duration", duration)
}

// OnRetryFailure handles non-retryable failures
func (h *LogEventHandler) OnRetryFailure(ctx context.Context, name string, attempt int, err error) {
	h.logger.DebugContext(ctx, "operation failed without retry",
		"operation", name,
		"attempt", attempt,
		"status_code", types.StatusCode(err),
		"error", err)
}

// OnMaxAttemptsReached handles max attempts reached events
func (h *LogEventHandler) OnMaxAttemptsReached(ctx context.Context, name string, attempt int, err error) {
	h.logger.ErrorContext(ctx, "retry attempts exhausted",
		"operation", name,
		"attempts", attempt,
		"status_code", types.StatusCode(err),
		"error", err)
}
