package shopql

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// handle is one reusable keep-alive transport. A handle is held by at most
// one caller at a time; the Session (or the executor, for ephemeral handles)
// owns its lifecycle.
type handle struct {
	client    *http.Client
	transport *http.Transport
	closeOnce sync.Once
}

func newHandle(timeout time.Duration, poolSize int) *handle {
	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &handle{
		client:    &http.Client{Transport: transport, Timeout: timeout},
		transport: transport,
	}
}

// close releases the handle's pooled connections. Idempotent.
func (h *handle) close() {
	h.closeOnce.Do(h.transport.CloseIdleConnections)
}

// Session is a connection scope: for its lifetime, workers check reusable
// handles out and in instead of building a transport per call. A single
// worker issuing sequential calls gets the same handle back each time, while
// concurrent workers each hold a distinct handle. The number of live handles
// is capped; when the cap is reached, acquire blocks until a handle is
// checked in, the scope exits, or the caller's context ends.
//
// Close releases every handle the session created, exactly once, and must be
// called on every exit path. It is safe to call Close more than once.
type Session struct {
	client *Client

	mu      sync.Mutex
	free    chan *handle
	handles []*handle
	closed  bool
	done    chan struct{}
}

func newSession(c *Client) *Session {
	return &Session{
		client: c,
		free:   make(chan *handle, c.poolSize),
		done:   make(chan struct{}),
	}
}

// acquire checks a handle out, creating one lazily while under the pool cap.
// A nil handle with a nil error means the scope has already exited; the
// caller falls back to an ephemeral handle it tears down itself.
func (s *Session) acquire(ctx context.Context) (*handle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil
	}
	select {
	case h := <-s.free:
		s.mu.Unlock()
		return h, nil
	default:
	}
	if len(s.handles) < s.client.poolSize {
		h := newHandle(s.client.timeout, s.client.poolSize)
		s.handles = append(s.handles, h)
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	select {
	case h := <-s.free:
		return h, nil
	case <-s.done:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release checks a handle back in.
func (s *Session) release(h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		h.close()
		return
	}
	// The channel's capacity matches the pool cap, so this never blocks.
	s.free <- h
}

// Close exits the scope and releases all handles created under it.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range handles {
		h.close()
	}

	s.client.endSession(s)
	return nil
}
