package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// htmlAuthSuccess is served to the browser once the callback lands. It closes
// itself after a short countdown.
const htmlAuthSuccess = `<!DOCTYPE html>
<html>
<head>
    <title>Authentication Success</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Arial, sans-serif;
               display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
        .container { padding: 40px; border-radius: 10px; box-shadow: 0 10px 40px rgba(0,0,0,0.2); text-align: center; }
        h1 { color: #2ecc71; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authentication successful</h1>
        <p>You can close this tab and return to your terminal.</p>
    </div>
    <script>setTimeout(function () { window.close(); }, 2000);</script>
</body>
</html>`

// callbackResult is what the local listener extracts from the redirect.
type callbackResult struct {
	Code  string
	State string
}

// listener serves exactly one GET /callback on a local port and hands the
// query parameters to the waiting flow. It must be closed on every exit path.
type listener struct {
	server  *http.Server
	ln      net.Listener
	results chan callbackResult
}

// newListener binds localhost:port. Port 0 picks a free port.
func newListener(port int) (*listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, &FlowError{Stage: StageListener, Message: "cannot bind local callback listener", Err: err}
	}

	l := &listener{
		ln:      ln,
		results: make(chan callbackResult, 1),
	}

	r := chi.NewRouter()
	r.Get("/callback", l.handleCallback)

	l.server = &http.Server{
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go l.server.Serve(ln) // nolint:errcheck // returns ErrServerClosed on Close

	return l, nil
}

func (l *listener) handleCallback(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(htmlAuthSuccess))

	// Only the first callback counts; the channel is buffered for it.
	select {
	case l.results <- callbackResult{Code: query.Get("code"), State: query.Get("state")}:
	default:
	}
}

// Port returns the bound port, needed to build the redirect URI.
func (l *listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// RedirectURI returns the redirect URI served by this listener.
func (l *listener) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", l.Port())
}

// Close tears the listener down. Idempotent.
func (l *listener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}
