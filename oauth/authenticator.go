// Package oauth implements the interactive OAuth bootstrap: a short-lived
// local callback listener, a browser-driven authorization step, and the
// exchange of the authorization code for an access token. The listener is
// closed on every exit path, success or failure.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/shopql/shopql-go/retry"
)

const (
	// DefaultPort is the local callback listener port.
	DefaultPort = 4545

	// DefaultCallbackTimeout bounds the wait for the browser redirect.
	DefaultCallbackTimeout = 3 * time.Minute
)

// Stage identifies where in the bootstrap flow a failure happened.
type Stage string

const (
	StageListener Stage = "listener"
	StageCallback Stage = "callback"
	StageState    Stage = "state"
	StageExchange Stage = "exchange"
)

// FlowError is a terminal bootstrap failure. The flow guarantees the local
// listener is already closed by the time a FlowError reaches the caller.
type FlowError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("oauth %s: %s", e.Stage, e.Message)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// Scopes splits the granted scope list.
func (t *Token) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Split(t.Scope, ",")
}

// Config describes one bootstrap invocation.
type Config struct {
	Shop   string
	Key    string
	Secret string

	// Port for the local callback listener. Zero means DefaultPort;
	// negative picks a free ephemeral port.
	Port int

	// Scopes requested in the authorization URL, comma-joined.
	Scopes []string

	// CallbackTimeout bounds the wait for the redirect. Zero means
	// DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// Retry governs the token exchange call. The zero value uses the same
	// defaults as query execution.
	Retry retry.Policy

	// AuthorizeURL and TokenURL override the shop endpoints. Intended for
	// tests.
	AuthorizeURL string
	TokenURL     string

	// OpenBrowser opens the authorization URL. Defaults to the system
	// browser.
	OpenBrowser func(url string) error

	Logger *zap.Logger
}

// Authenticator drives the bootstrap state machine:
// listener started → awaiting callback → code received → token exchanged →
// closed, failing terminally from any intermediate state.
type Authenticator struct {
	Config Config

	// HTTPClient performs the token exchange. Defaults to a short-timeout
	// client.
	HTTPClient *http.Client
}

// Authenticate runs the flow once and returns the exchanged token. The
// callback wait is bounded by Config.CallbackTimeout and the caller's
// context, whichever ends first.
func (a *Authenticator) Authenticate(ctx context.Context) (*Token, error) {
	cfg := a.Config
	if cfg.Shop == "" || cfg.Key == "" || cfg.Secret == "" {
		return nil, &FlowError{Stage: StageListener, Message: "shop, key, and secret are required"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	port := cfg.Port
	switch {
	case port == 0:
		port = DefaultPort
	case port < 0:
		port = 0
	}

	l, err := newListener(port)
	if err != nil {
		return nil, err
	}
	defer l.Close() // nolint:errcheck // listener teardown is guaranteed, best-effort

	state := uuid.NewString()
	authURL := a.authorizeURL(l.RedirectURI(), state)

	logger.Debug("listener started, opening authorization URL",
		zap.Int("port", l.Port()),
		zap.String("shop", cfg.Shop))

	open := cfg.OpenBrowser
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(authURL); err != nil {
		// Not fatal: the user can still follow the URL by hand.
		logger.Warn("cannot open browser, open the authorization URL manually",
			zap.String("url", authURL),
			zap.Error(err))
	}

	timeout := cfg.CallbackTimeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result callbackResult
	select {
	case result = <-l.results:
	case <-timer.C:
		return nil, &FlowError{
			Stage:   StageCallback,
			Message: "authorization callback not received; check that the app's redirect URI matches " + l.RedirectURI(),
		}
	case <-ctx.Done():
		return nil, &FlowError{Stage: StageCallback, Message: "authorization canceled", Err: ctx.Err()}
	}

	if result.State != state {
		return nil, &FlowError{
			Stage:   StageState,
			Message: "state token mismatch; possible cross-site forgery or a stale authorization session",
		}
	}
	if result.Code == "" {
		return nil, &FlowError{Stage: StageCallback, Message: "no authorization code received"}
	}

	logger.Debug("authorization code received, exchanging for access token")

	token, err := a.exchange(ctx, result.Code)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (a *Authenticator) authorizeURL(redirectURI, state string) string {
	base := a.Config.AuthorizeURL
	if base == "" {
		base = fmt.Sprintf("https://%s.myshopify.com/admin/oauth/authorize", a.Config.Shop)
	}

	params := url.Values{}
	params.Set("client_id", a.Config.Key)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	if len(a.Config.Scopes) > 0 {
		params.Set("scope", strings.Join(a.Config.Scopes, ","))
	}
	return base + "?" + params.Encode()
}

// exchangeError classifies a failed token endpoint response: server errors
// are transient, everything else means the credentials are wrong.
type exchangeError struct {
	StatusCode int
	Body       string
}

func (e *exchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *exchangeError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// transportError marks network failures during the exchange as transient.
type transportError struct {
	Err error
}

func (e *transportError) Error() string   { return e.Err.Error() }
func (e *transportError) Unwrap() error   { return e.Err }
func (e *transportError) Retryable() bool { return true }

// exchange trades the authorization code for an access token, retrying
// transient failures under the configured policy.
func (a *Authenticator) exchange(ctx context.Context, code string) (*Token, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     a.Config.Key,
		"client_secret": a.Config.Secret,
		"code":          code,
	})
	if err != nil {
		return nil, &FlowError{Stage: StageExchange, Message: "encode token request", Err: err}
	}

	schedule := a.Config.Retry.Schedule()
	for {
		token, attemptErr := a.exchangeOnce(ctx, payload)
		if attemptErr == nil {
			return token, nil
		}

		delay, ok := schedule.Next(attemptErr)
		if !ok {
			return nil, &FlowError{Stage: StageExchange, Message: "token exchange failed", Err: attemptErr}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FlowError{Stage: StageExchange, Message: "token exchange canceled", Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

func (a *Authenticator) exchangeOnce(ctx context.Context, payload []byte) (*Token, error) {
	tokenURL := a.Config.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://%s.myshopify.com/admin/oauth/access_token", a.Config.Shop)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &transportError{Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &exchangeError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &transportError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if token.AccessToken == "" {
		return nil, &exchangeError{StatusCode: resp.StatusCode, Body: "response carried no access token"}
	}
	return &token, nil
}
