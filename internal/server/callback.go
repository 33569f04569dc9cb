package server

import (
	"fmt"
	"net/http"
	"sync"

	"spotify-cli/internal/shared"
)

// CallbackResult contains the parsed outcome of a single OAuth redirect hit.
// Produced once by the CallbackHandler and consumed once by the authorization flow.
type CallbackResult struct {
	Code  string
	State string
	Err   error
}

// CallbackHandler handles the OAuth2 authorization code redirect.
// Implements the Handler interface for registration with a Router.
//
// The handler captures the redirect parameters; exchanging the code belongs
// to the authorization flow, not the HTTP layer.
type CallbackHandler struct {
	state       string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a callback handler expecting the given state nonce.
// The nonce should be cryptographically random for CSRF protection.
func NewCallbackHandler(state string) *CallbackHandler {
	return &CallbackHandler{
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
//
// The redirect URI has no path, so the handler owns the root route.
func (h *CallbackHandler) Routes() []string {
	return []string{"/"}
}

// ServeHTTP handles the OAuth redirect request.
//
// Parses the code, state, and error query parameters, validates the state
// nonce, and delivers exactly one CallbackResult through the result channel.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The "/" mux pattern catches every path; stray requests like
	// /favicon.ico must not consume the single-use callback.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		h.writePage(w, http.StatusBadRequest, "Already Handled", "This authorization was already processed. You can close this window.")
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	state := query.Get("state")
	code := query.Get("code")
	errParam := query.Get("error")

	if state == "" {
		h.Send(CallbackResult{Err: fmt.Errorf("%w: missing state parameter", shared.ErrInvalidCallback)})
		h.writePage(w, http.StatusBadRequest, "Authorization Failed", "The redirect was missing required parameters.")
		return
	}

	if state != h.state {
		h.Send(CallbackResult{Code: code, State: state, Err: fmt.Errorf("%w: unexpected state parameter", shared.ErrStateMismatch)})
		h.writePage(w, http.StatusBadRequest, "Authorization Failed", "The state parameter did not match this authorization attempt.")
		return
	}

	if errParam != "" {
		desc := query.Get("error_description")
		if desc == "" {
			desc = errParam
		}
		h.Send(CallbackResult{State: state, Err: fmt.Errorf("%w: %s", shared.ErrUserDenied, desc)})
		h.writePage(w, http.StatusOK, "Authorization Declined", "Consent was not granted. You can close this window and return to the terminal.")
		return
	}

	if code == "" {
		h.Send(CallbackResult{State: state, Err: fmt.Errorf("%w: missing authorization code", shared.ErrInvalidCallback)})
		h.writePage(w, http.StatusBadRequest, "Authorization Failed", "The redirect carried no authorization code.")
		return
	}

	h.Send(CallbackResult{Code: code, State: state})
	h.writePage(w, http.StatusOK, "✓ Authorization Successful", "You can close this window and return to the terminal.")
}

// Send sends the callback result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving the callback.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

func (h *CallbackHandler) writePage(w http.ResponseWriter, status int, heading, detail string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`, heading, heading, detail)
}
