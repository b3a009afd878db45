package auth

import "time"

// DefaultExpiryBuffer is how long before its expiry a token is treated as expired
const DefaultExpiryBuffer = 5 * time.Minute

// IsExpired reports whether now ≥ expiresAt − buffer.
// A zero expiresAt is never expired.
func IsExpired(expiresAt time.Time, buffer time.Duration, now time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !now.Before(expiresAt.Add(-buffer))
}
