package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/desertthunder/tubeport/internal/shared"
	"golang.org/x/oauth2"
)

// callbackPath is served when the redirect URI has no path of its own.
const callbackPath = "/callback"

type callbackResult struct {
	token *oauth2.Token
	err   error
}

// callbackError carries the HTTP status shown to the browser alongside the error handed to [OAuthHandler.Wait].
type callbackError struct {
	status int
	page   string
	err    error
}

// OAuthHandler serves the Spotify redirect URI. It accepts a single callback, checks its state and
// exchanges the authorization code for a token.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan callbackResult
	claimed atomic.Bool
}

// NewOAuthHandler creates a handler expecting state on the callback. state should come from
// [shared.GenerateState].
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan callbackResult, 1),
	}
}

// Routes returns the path of the configured redirect URI.
func (h *OAuthHandler) Routes() []string {
	if h.config != nil {
		if u, err := url.Parse(h.config.RedirectURL); err == nil && u.Path != "" && u.Path != "/" {
			return []string{u.Path}
		}
	}
	return []string{callbackPath}
}

// ServeHTTP handles the redirect from the Spotify consent page. Replays are rejected.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.claimed.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	token, cbErr := h.exchange(r)
	if cbErr != nil {
		h.results <- callbackResult{err: cbErr.err}
		close(h.results)
		http.Error(w, cbErr.page, cbErr.status)
		return
	}

	h.results <- callbackResult{token: token}
	close(h.results)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) exchange(r *http.Request) (*oauth2.Token, *callbackError) {
	query := r.URL.Query()

	if query.Get("state") != h.state {
		return nil, &callbackError{
			status: http.StatusBadRequest,
			page:   "Invalid state parameter",
			err:    fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed),
		}
	}

	if reason := query.Get("error"); reason != "" {
		return nil, &callbackError{
			status: http.StatusBadRequest,
			page:   "Authorization was not granted",
			err:    fmt.Errorf("%w: spotify returned %s %s", shared.ErrAuthFailed, reason, query.Get("error_description")),
		}
	}

	code := query.Get("code")
	if code == "" {
		return nil, &callbackError{
			status: http.StatusBadRequest,
			page:   "Missing authorization code",
			err:    fmt.Errorf("%w: missing code", shared.ErrAuthFailed),
		}
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		return nil, &callbackError{
			status: http.StatusInternalServerError,
			page:   "Token exchange failed",
			err:    fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err),
		}
	}
	return token, nil
}

// Wait blocks until the callback delivers a result or ctx ends. The result can be taken once.
func (h *OAuthHandler) Wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case result, ok := <-h.results:
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: callback already consumed", shared.ErrAuthFailed)
		case result.err != nil:
			return nil, result.err
		case result.token == nil:
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.token, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

const successPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>tubeport: Spotify connected</title>
  <style>
    body { font-family: system-ui, sans-serif; display: grid; place-items: center; height: 100vh; margin: 0; background: #121212; }
    main { text-align: center; color: #b3b3b3; }
    h1 { color: #1DB954; }
  </style>
</head>
<body>
  <main>
    <h1>✓ Spotify connected</h1>
    <p>Return to the terminal, tubeport will pick up from here.</p>
  </main>
</body>
</html>
`
