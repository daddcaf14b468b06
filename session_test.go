package shopql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sessionClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New("teststore", "shpat_test", opts...)
	require.NoError(t, err)
	return c
}

func TestSessionSequentialCallsReuseHandle(t *testing.T) {
	c := sessionClient(t)
	s := c.Session()
	defer s.Close() // nolint:errcheck

	h1, err := s.acquire(context.Background())
	require.NoError(t, err)
	s.release(h1)

	h2, err := s.acquire(context.Background())
	require.NoError(t, err)
	s.release(h2)

	require.Same(t, h1, h2)
}

func TestSessionConcurrentHoldersGetDistinctHandles(t *testing.T) {
	c := sessionClient(t)
	s := c.Session()
	defer s.Close() // nolint:errcheck

	h1, err := s.acquire(context.Background())
	require.NoError(t, err)
	h2, err := s.acquire(context.Background())
	require.NoError(t, err)
	require.NotSame(t, h1, h2)

	s.release(h1)
	s.release(h2)
}

func TestSessionCapBlocksUntilRelease(t *testing.T) {
	c := sessionClient(t, WithPoolSize(1))
	s := c.Session()
	defer s.Close() // nolint:errcheck

	h1, err := s.acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan *handle)
	go func() {
		h, _ := s.acquire(context.Background())
		acquired <- h
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while the only handle is held")
	case <-time.After(50 * time.Millisecond):
	}

	s.release(h1)

	select {
	case h2 := <-acquired:
		require.Same(t, h1, h2)
		s.release(h2)
	case <-time.After(time.Second):
		t.Fatal("acquire did not wake after release")
	}
}

func TestSessionAcquireHonorsCanceledContext(t *testing.T) {
	c := sessionClient(t, WithPoolSize(1))
	s := c.Session()
	defer s.Close() // nolint:errcheck

	held, err := s.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.acquire(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("acquire kept blocking after its context was canceled")
	}

	s.release(held)
}

func TestQueryAtPoolCapReturnsOnCanceledContext(t *testing.T) {
	c := sessionClient(t, WithPoolSize(1))
	s := c.Session()
	defer s.Close() // nolint:errcheck

	// Hold the pool's only handle so the query has to wait for one.
	held, err := s.acquire(context.Background())
	require.NoError(t, err)
	defer s.release(held)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.Query(ctx, "FROM sales SHOW total_sales")
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("query kept blocking after its context was canceled")
	}
}

func TestSessionReentryReturnsSameSession(t *testing.T) {
	c := sessionClient(t)
	s1 := c.Session()
	s2 := c.Session()
	require.Same(t, s1, s2)

	require.NoError(t, s1.Close())

	// After the scope exits, entering again starts a fresh one.
	s3 := c.Session()
	require.NotSame(t, s1, s3)
	require.NoError(t, s3.Close())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	c := sessionClient(t)
	s := c.Session()

	h, err := s.acquire(context.Background())
	require.NoError(t, err)
	s.release(h)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// A closed scope hands out no handles; the executor falls back to an
	// ephemeral one.
	h, err = s.acquire(context.Background())
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestEphemeralHandleOutsideScope(t *testing.T) {
	c := sessionClient(t)
	require.Nil(t, c.currentSession())

	h := newHandle(c.timeout, 1)
	require.NotNil(t, h.client)
	h.close()
	h.close()
}
