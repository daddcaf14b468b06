package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopql/shopql-go/retry"
)

// fakeBrowser simulates the user's browser: it parses the authorization URL
// and immediately follows the redirect URI with the given code and state.
// An empty state forwards the real anti-forgery token.
func fakeBrowser(t *testing.T, code, state string, redirectURI *string) func(string) error {
	t.Helper()
	return func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := parsed.Query()

		target := q.Get("redirect_uri")
		if redirectURI != nil {
			*redirectURI = target
		}

		callbackState := state
		if callbackState == "" {
			callbackState = q.Get("state")
		}

		resp, err := http.Get(fmt.Sprintf("%s?code=%s&state=%s", target, code, callbackState))
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

// requireListenerClosed asserts nothing is serving the callback any more.
func requireListenerClosed(t *testing.T, redirectURI string) {
	t.Helper()
	require.NotEmpty(t, redirectURI)
	_, err := http.Get(redirectURI) // nolint:noctx // probe after teardown
	require.Error(t, err)
}

func testConfig(tokenURL string) Config {
	return Config{
		Shop:     "teststore",
		Key:      "test-key",
		Secret:   "test-secret",
		Port:     -1, // ephemeral port so parallel tests never collide
		TokenURL: tokenURL,
		Retry:    retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond},
	}
}

func TestAuthenticateHappyPath(t *testing.T) {
	var exchanged atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanged.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "shpat_new", "scope": "read_orders,read_reports"}`))
	}))
	defer tokenServer.Close()

	var redirectURI string
	cfg := testConfig(tokenServer.URL)
	cfg.OpenBrowser = fakeBrowser(t, "authcode123", "", &redirectURI)

	auth := Authenticator{Config: cfg}
	token, err := auth.Authenticate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "shpat_new", token.AccessToken)
	require.Equal(t, []string{"read_orders", "read_reports"}, token.Scopes())
	require.Equal(t, int32(1), exchanged.Load())

	requireListenerClosed(t, redirectURI)
}

func TestAuthenticateStateMismatch(t *testing.T) {
	var redirectURI string
	cfg := testConfig("http://unused.invalid")
	cfg.OpenBrowser = fakeBrowser(t, "authcode123", "forged-state", &redirectURI)

	auth := Authenticator{Config: cfg}
	_, err := auth.Authenticate(context.Background())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	require.Equal(t, StageState, flowErr.Stage)

	requireListenerClosed(t, redirectURI)
}

func TestAuthenticateCallbackTimeout(t *testing.T) {
	var authURL string
	cfg := testConfig("http://unused.invalid")
	cfg.CallbackTimeout = 50 * time.Millisecond
	cfg.OpenBrowser = func(u string) error {
		authURL = u
		return nil // browser opened, user never completes the flow
	}

	auth := Authenticator{Config: cfg}
	_, err := auth.Authenticate(context.Background())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	require.Equal(t, StageCallback, flowErr.Stage)
	require.Contains(t, flowErr.Message, "redirect URI")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	requireListenerClosed(t, parsed.Query().Get("redirect_uri"))
}

func TestAuthenticateMissingCode(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.OpenBrowser = fakeBrowser(t, "", "", nil)

	auth := Authenticator{Config: cfg}
	_, err := auth.Authenticate(context.Background())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	require.Equal(t, StageCallback, flowErr.Stage)
}

func TestExchangeRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"access_token": "shpat_new", "scope": ""}`))
	}))
	defer tokenServer.Close()

	cfg := testConfig(tokenServer.URL)
	cfg.OpenBrowser = fakeBrowser(t, "authcode123", "", nil)

	auth := Authenticator{Config: cfg}
	token, err := auth.Authenticate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "shpat_new", token.AccessToken)
	require.Nil(t, token.Scopes())
	require.Equal(t, int32(2), hits.Load())
}

func TestExchangeRejectionIsFatal(t *testing.T) {
	var hits atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid_client"}`))
	}))
	defer tokenServer.Close()

	cfg := testConfig(tokenServer.URL)
	cfg.OpenBrowser = fakeBrowser(t, "authcode123", "", nil)

	auth := Authenticator{Config: cfg}
	_, err := auth.Authenticate(context.Background())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	require.Equal(t, StageExchange, flowErr.Stage)
	require.Equal(t, int32(1), hits.Load())
}

func TestAuthenticateValidatesConfig(t *testing.T) {
	auth := Authenticator{Config: Config{Shop: "teststore"}}
	_, err := auth.Authenticate(context.Background())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
}
