// Package retry provides backoff algorithm implementations
package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the backoff strategy interface
type BackoffStrategy interface {
	// NextDelay calculates the delay for the next retry
	NextDelay(attempt int) time.Duration
}

// Delay computes min(initialDelay × base^(attempt-1), maxDelay).
// Attempts below 1 are treated as 1; a non-positive maxDelay disables the cap.
func Delay(attempt int, initialDelay time.Duration, base float64, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if initialDelay <= 0 {
		return 0
	}

	delay := float64(initialDelay) * math.Pow(base, float64(attempt-1))

	// limit maximum delay
	if maxDelay > 0 && (math.IsInf(delay, 0) || math.IsNaN(delay) || delay >= float64(maxDelay)) {
		return maxDelay
	}
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

// ExponentialBackoff implements exponential backoff strategy
type ExponentialBackoff struct {
	initialDelay time.Duration
	base         float64
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewExponentialBackoff creates an exponential backoff strategy.
// Without WithBackoffJitter the delays are fully deterministic.
func NewExponentialBackoff(initialDelay time.Duration, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: initialDelay,
		base:         DefaultExponentialBase,
		maxDelay:     DefaultMaxDelay,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NextDelay calculates the delay for the next retry
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := Delay(attempt, b.initialDelay, b.base, b.maxDelay)

	// apply jitter
	if b.jitter != nil {
		delay = b.jitter(delay)
	}

	return delay
}

// JitterFunc jitter function type
type JitterFunc func(time.Duration) time.Duration

// FullJitter full jitter function - random within [0, delay) range
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter equal jitter function - delay/2 + random(0, delay/2)
func EqualJitter(delay time.Duration) time.Duration {
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

// BackoffOption backoff strategy configuration option
type BackoffOption func(*ExponentialBackoff)

// WithBackoffBase sets the exponential base
func WithBackoffBase(base float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		if base > 0 {
			b.base = base
		}
	}
}

// WithBackoffMaxDelay sets maximum delay time
func WithBackoffMaxDelay(maxDelay time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.maxDelay = maxDelay
	}
}

// WithBackoffJitter sets jitter function
func WithBackoffJitter(jitter JitterFunc) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitter = jitter
	}
}
