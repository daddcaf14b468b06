// Package retry classifies attempt failures and schedules backoff delays.
// Classification is a pure function of the error value; the delay schedule is
// per-call state and is never shared between logical calls.
package retry

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries is the number of retries after the initial attempt.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the delay before the first retry; it doubles on
	// each subsequent retry.
	DefaultBaseDelay = time.Second

	defaultRandomization = 0.25
)

// Transient is implemented by errors that may succeed on a later attempt:
// transport failures, 429s, and 5xx-class server errors.
type Transient interface {
	Retryable() bool
}

// Retryable reports whether err (or anything it wraps) marks itself transient.
// A nil error and errors with no classification are not retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var t Transient
	if errors.As(err, &t) {
		return t.Retryable()
	}
	return false
}

// Policy decides whether a failed attempt is retried and how long to wait.
type Policy struct {
	// MaxRetries caps retries after the initial attempt. Zero means
	// DefaultMaxRetries; negative disables retries entirely.
	MaxRetries int

	// BaseDelay is the first backoff interval. Zero means DefaultBaseDelay.
	BaseDelay time.Duration

	// Randomization is the backoff jitter factor in [0, 1). Zero means the
	// default of 0.25; delays are drawn from delay*(1±Randomization).
	Randomization float64
}

func (p Policy) maxRetries() int {
	switch {
	case p.MaxRetries == 0:
		return DefaultMaxRetries
	case p.MaxRetries < 0:
		return 0
	default:
		return p.MaxRetries
	}
}

// Schedule returns a fresh delay schedule for one logical call.
func (p Policy) Schedule() *Schedule {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	randomization := p.Randomization
	if randomization == 0 {
		randomization = defaultRandomization
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = randomization
	b.MaxInterval = time.Duration(1<<uint(p.maxRetries())) * base
	b.MaxElapsedTime = 0
	b.Reset()

	return &Schedule{policy: p, backoff: b}
}

// Schedule is the per-call retry state: the attempt counter plus an
// exponential backoff generator.
type Schedule struct {
	policy  Policy
	backoff *backoff.ExponentialBackOff
	attempt int
}

// Attempts reports how many attempts have been decided so far, including the
// initial one.
func (s *Schedule) Attempts() int {
	return s.attempt + 1
}

// Next consumes the outcome of the current attempt and returns the delay
// before the next one. ok is false when the error is fatal or the retry
// budget is spent; the caller then surfaces the error.
func (s *Schedule) Next(err error) (time.Duration, bool) {
	if err == nil || !Retryable(err) {
		return 0, false
	}
	if s.attempt >= s.policy.maxRetries() {
		return 0, false
	}
	s.attempt++

	d := s.backoff.NextBackOff()
	if d == backoff.Stop || d < 0 {
		return 0, false
	}
	return d, true
}
