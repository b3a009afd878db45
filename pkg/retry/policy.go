// Package retry provides retry policies and the default retry condition
package retry

import (
	"errors"
	"net/http"
	"time"

	"github.com/jzx17/crmclient/pkg/types"
)

// Policy defaults
const (
	DefaultMaxRetries      = 3
	DefaultInitialDelay    = time.Second
	DefaultMaxDelay        = 10 * time.Second
	DefaultExponentialBase = 2.0
)

// RetryCondition decides whether a failed attempt should be retried.
// attempt is the 1-based index of the attempt that just failed.
type RetryCondition func(err error, attempt int) bool

// RetryObserver is called before each wait with the failed attempt's error,
// its 1-based index and the delay about to be slept. It must not panic.
type RetryObserver func(err error, attempt int, delay time.Duration)

// Policy describes how an operation is retried
type Policy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps every computed delay
	MaxDelay time.Duration

	// ExponentialBase is the growth factor between consecutive delays
	ExponentialBase float64

	// Jitter optionally randomises computed delays
	Jitter JitterFunc

	// ShouldRetry defaults to DefaultRetryCondition
	ShouldRetry RetryCondition

	// OnRetry is optional
	OnRetry RetryObserver
}

// DefaultPolicy returns the default retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      DefaultMaxRetries,
		InitialDelay:    DefaultInitialDelay,
		MaxDelay:        DefaultMaxDelay,
		ExponentialBase: DefaultExponentialBase,
		ShouldRetry:     DefaultRetryCondition,
	}
}

// normalized returns a copy with invalid fields replaced by defaults
func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.ExponentialBase <= 0 {
		p.ExponentialBase = DefaultExponentialBase
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = DefaultRetryCondition
	}
	return p
}

// MaxAttempts returns the total number of attempts, first one included
func (p Policy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// NextDelay returns the delay to wait after the given failed attempt
func (p Policy) NextDelay(attempt int) time.Duration {
	delay := Delay(attempt, p.InitialDelay, p.ExponentialBase, p.MaxDelay)
	if p.Jitter != nil {
		delay = p.Jitter(delay)
	}
	return delay
}

// DefaultRetryCondition retries transport errors flagged retryable
// (5xx, 429, network failures and timeouts) and never 401 or 403.
func DefaultRetryCondition(err error, attempt int) bool {
	if err == nil {
		return false
	}

	var transportErr *types.TransportError
	if !errors.As(err, &transportErr) {
		// context-related and foreign errors are not retried
		return false
	}

	switch transportErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}

	return transportErr.Retryable
}

// RetryAlways retries every error
func RetryAlways(error, int) bool { return true }

// RetryNever disables retries while keeping the executor in place
func RetryNever(error, int) bool { return false }
