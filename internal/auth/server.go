package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// ErrStateMismatch means the callback did not come from our authorization request
var ErrStateMismatch = errors.New("state mismatch")

const successPage = `<!DOCTYPE html>
<html>
<head><title>ride-review</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>Connected to Strava</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// RedirectURL is the callback address registered with the Strava app
func RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", CallbackPort)
}

// Authenticate runs the authorization-code flow: it prints the consent URL to
// out, waits for Strava to redirect to the local callback server and exchanges
// the code for a token.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer, log *logrus.Entry) (*Result, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, codes, errs))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	defer shutdownServer(server)

	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			send(errs, fmt.Errorf("callback server: %w", err))
		}
	}()

	fmt.Fprintf(out, "\nOpen this URL in your browser to connect ride-review to Strava:\n\n  %s\n\nWaiting for authorization...\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	log.WithField("port", CallbackPort).Debug("Waiting for OAuth callback")

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-time.After(AuthTimeout):
		return nil, fmt.Errorf("authorization timed out after %v", AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return &Result{Token: token, AthleteID: AthleteID(token)}, nil
}

// callbackHandler validates the redirect and forwards the code or the failure
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			send(errs, ErrStateMismatch)
			http.Error(w, "State mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			send(errs, fmt.Errorf("authorization denied: %s", q.Get("error")))
			http.Error(w, "Authorization failed", http.StatusBadRequest)
		case q.Get("code") == "":
			send(errs, errors.New("no code in callback"))
			http.Error(w, "No authorization code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, successPage)
			send(codes, q.Get("code"))
		}
	})
}

// send never blocks; only the first result matters
func send[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
