// Package retry implements the retry loop used by every CRM request.
//
// Backoff is a deterministic exponential curve:
//
//	delay(n) = min(InitialDelay × ExponentialBase^(n-1), MaxDelay)
//
// where n is the 1-based index of the attempt that just failed. Jitter is
// opt-in through Policy.Jitter (FullJitter, EqualJitter).
//
// A Policy allows MaxRetries+1 attempts in total. After a failed attempt the
// policy's ShouldRetry condition is consulted; when it agrees and attempts
// remain, OnRetry is called with the error, the attempt index and the delay,
// then the executor sleeps and tries again. Otherwise the error of the last
// attempt is returned as is.
//
// The default condition retries transport errors flagged retryable by the
// transport layer (5xx, 429, network failures) and never 401 or 403. A
// Retry-After hint carried by the error raises the delay, bounded by MaxDelay.
//
// Basic usage example:
//
//	policy := retry.DefaultPolicy()
//	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
//		log.Printf("attempt %d failed, retrying in %v: %v", attempt, delay, err)
//	}
//
//	contact, err := retry.Do(ctx, policy, func(ctx context.Context) (*Contact, error) {
//		return fetchContact(ctx, id)
//	})
//
// Executors are safe for concurrent use and keep aggregated Stats:
//
//	executor := retry.NewExecutor(policy,
//		retry.WithEventHandler(retry.NewLogEventHandler(logger)))
//	result, err := retry.ExecuteWithName(executor, ctx, "contacts.get", fn)
package retry
