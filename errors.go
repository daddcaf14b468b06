package shopql

import (
	"fmt"
	"net/http"
	"strings"
)

// TransportError wraps a network-level failure (connection reset, timeout,
// DNS). Always retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable marks transport failures as transient.
func (e *TransportError) Retryable() bool { return true }

// StatusError is returned when the API responds with a non-2xx status that is
// not an authentication failure. 429 and 5xx responses are retryable; other
// client errors are fatal.
//
// RawResponse holds the response body bytes. It must never include the access
// token.
type StatusError struct {
	StatusCode  int
	RawResponse []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: status %d: %s", e.StatusCode, strings.TrimSpace(string(e.RawResponse)))
}

// Retryable reports whether the status class is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// AuthError is returned for 401/403 responses. Never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: status %d: %s", e.StatusCode, e.Message)
}

// QueryError carries the messages of a GraphQL errors array returned in an
// otherwise successful response. Never retried.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "query errors:\n" + strings.Join(e.Messages, "\n")
}

// MalformedResponseError is returned when the response body parses but
// contains no recognizable table data. Never retried; the usual cause is a
// missing access scope, so Scopes carries the scopes currently granted when
// they could be fetched.
type MalformedResponseError struct {
	Message string
	Scopes  []string
}

func (e *MalformedResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "server returned no valid table data"
	}
	if len(e.Scopes) > 0 {
		return fmt.Sprintf("%s (current scopes: %s)", msg, strings.Join(e.Scopes, ", "))
	}
	return msg
}

// ProjectionError is returned by projectors when the table shape is
// structurally inconsistent, such as a row whose arity does not match the
// column list.
type ProjectionError struct {
	Row     int
	Message string
}

func (e *ProjectionError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("cannot project table data: row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("cannot project table data: %s", e.Message)
}

// AttemptsError is surfaced when every attempt of a call failed with a
// retryable error and the retry budget is spent. It wraps the last
// classified failure.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }
