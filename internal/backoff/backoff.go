// Package backoff maps a reconnect attempt number to a retry delay.
package backoff

import "time"

const (
	DefaultBase        = time.Second
	DefaultCap         = 30 * time.Second
	DefaultMaxAttempts = 5
)

// Policy is capped exponential backoff without jitter:
// Delay(n) = min(Base * 2^n, Cap).
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// Default returns the 1s/30s/5 policy used by the board client.
func Default() Policy {
	return Policy{
		Base:        DefaultBase,
		Cap:         DefaultCap,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Exhausted reports whether no further retry may be scheduled after attempt
// failed attempts.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Delay returns the wait before retry number attempt (0-based). Negative
// attempts are treated as 0.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.Base <= 0 {
		return 0
	}

	d := p.Base
	for range attempt {
		if d >= p.Cap/2 {
			return p.Cap
		}
		d *= 2
	}
	return min(d, p.Cap)
}
