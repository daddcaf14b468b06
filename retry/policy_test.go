package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type transientErr struct{ msg string }

func (e *transientErr) Error() string   { return e.msg }
func (e *transientErr) Retryable() bool { return true }

type fatalErr struct{ msg string }

func (e *fatalErr) Error() string   { return e.msg }
func (e *fatalErr) Retryable() bool { return false }

func TestRetryableClassification(t *testing.T) {
	require.False(t, Retryable(nil))
	require.False(t, Retryable(errors.New("plain")))
	require.False(t, Retryable(&fatalErr{msg: "auth"}))
	require.True(t, Retryable(&transientErr{msg: "reset"}))

	// Classification sees through wrapping.
	wrapped := fmt.Errorf("attempt: %w", &transientErr{msg: "reset"})
	require.True(t, Retryable(wrapped))
}

func TestScheduleStopsOnFatal(t *testing.T) {
	s := Policy{MaxRetries: 5}.Schedule()

	_, ok := s.Next(&fatalErr{msg: "bad request"})
	require.False(t, ok)
	require.Equal(t, 1, s.Attempts())
}

func TestScheduleExhaustsBudget(t *testing.T) {
	s := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}.Schedule()

	for i := 0; i < 3; i++ {
		d, ok := s.Next(&transientErr{msg: "reset"})
		require.True(t, ok)
		require.GreaterOrEqual(t, d, time.Duration(0))
	}

	_, ok := s.Next(&transientErr{msg: "reset"})
	require.False(t, ok)
	require.Equal(t, 4, s.Attempts())
}

func TestScheduleDelaysGrow(t *testing.T) {
	// With the default randomization of 0.25 and a multiplier of 2 the jitter
	// ranges of consecutive delays do not overlap, so each delay is strictly
	// larger than the previous one.
	s := Policy{MaxRetries: 4, BaseDelay: 100 * time.Millisecond}.Schedule()

	var last time.Duration
	for i := 0; i < 4; i++ {
		d, ok := s.Next(&transientErr{msg: "reset"})
		require.True(t, ok)
		require.Greater(t, d, last)
		last = d
	}
}

func TestNegativeMaxRetriesDisablesRetries(t *testing.T) {
	s := Policy{MaxRetries: -1}.Schedule()

	_, ok := s.Next(&transientErr{msg: "reset"})
	require.False(t, ok)
}

func TestZeroPolicyUsesDefaults(t *testing.T) {
	p := Policy{}
	require.Equal(t, DefaultMaxRetries, p.maxRetries())

	s := p.Schedule()
	d, ok := s.Next(&transientErr{msg: "reset"})
	require.True(t, ok)
	require.Greater(t, d, time.Duration(0))
}
