package archive

import "time"

const (
	DefaultBackoffBase = 15 * time.Second
	DefaultBackoffMax  = 300 * time.Second

	// maxBackoffExponent caps the doubling so base<<exponent cannot overflow.
	maxBackoffExponent uint = 5
)

// BackoffPolicy describes capped exponential growth between check rounds.
// A zero or negative field means unset and falls back to its default, so
// Max: 0 caps at DefaultBackoffMax rather than at zero.
type BackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff waits 15s, 30s, 60s, 120s, 240s and then 300s.
var DefaultBackoff = BackoffPolicy{
	Base: DefaultBackoffBase,
	Max:  DefaultBackoffMax,
}

// Backoff returns the delay before retry number attempt (0-indexed) under
// DefaultBackoff.
func Backoff(attempt uint) time.Duration {
	return DefaultBackoff.Delay(attempt)
}

// Delay returns min(Base * 2^min(attempt, 5), Max).
func (p BackoffPolicy) Delay(attempt uint) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultBackoffBase
	}
	ceiling := p.Max
	if ceiling <= 0 {
		ceiling = DefaultBackoffMax
	}

	factor := time.Duration(1) << min(attempt, maxBackoffExponent)

	// base*factor > ceiling, checked without multiplying.
	if base > ceiling/factor {
		return ceiling
	}
	return base * factor
}
