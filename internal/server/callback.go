package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/ytloop/internal/shared"
)

// Completer finishes a login from the raw callback fragment.
type Completer func(ctx context.Context, fragment string) error

// CallbackResult is the outcome of the one login callback a [CallbackHandler] accepts.
type CallbackResult struct {
	err error
}

func (c CallbackResult) Error() error {
	return c.err
}

// CallbackHandler serves the implicit-grant redirect.
//
// The token arrives in the URL fragment, which browsers never send to a server. GET /callback
// serves a page that strips the fragment from the address bar and posts it to
// POST /callback/token, which hands it to the [Completer] exactly once.
type CallbackHandler struct {
	complete   Completer
	resultChan chan CallbackResult
	once       sync.Once
	mu         sync.Mutex
	posted     bool
}

// NewCallbackHandler creates a handler that completes logins with complete.
func NewCallbackHandler(complete Completer) *CallbackHandler {
	return &CallbackHandler{
		complete:   complete,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET /callback", "POST /callback/token"}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/callback":
		h.page(w)
	case r.Method == http.MethodPost && r.URL.Path == "/callback/token":
		h.token(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *CallbackHandler) page(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, callbackPage)
}

func (h *CallbackHandler) token(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.posted {
		h.mu.Unlock()
		writeStatus(w, http.StatusConflict, errors.New("callback already processed"))
		return
	}
	h.posted = true
	h.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		err = fmt.Errorf("%w: unreadable callback body", shared.ErrAuthFailed)
		h.Send(CallbackResult{err: err})
		writeStatus(w, http.StatusBadRequest, err)
		return
	}

	fragment := r.PostForm.Get("fragment")
	if fragment == "" {
		err := fmt.Errorf("%w: callback carried no fragment", shared.ErrAuthFailed)
		h.Send(CallbackResult{err: err})
		writeStatus(w, http.StatusBadRequest, err)
		return
	}

	if err := h.complete(r.Context(), fragment); err != nil {
		h.Send(CallbackResult{err: err})
		status := http.StatusBadRequest
		if errors.Is(err, shared.ErrCSRFMismatch) {
			status = http.StatusForbidden
		}
		writeStatus(w, status, err)
		return
	}

	h.Send(CallbackResult{})
	writeStatus(w, http.StatusOK, nil)
}

func writeStatus(w http.ResponseWriter, status int, err error) {
	body := map[string]any{"ok": err == nil}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Send delivers the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>ytloop sign-in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        .ok { color: #cc0000; }
        .fail { color: #666; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Signing in...</h1>
        <p id="detail">One moment.</p>
    </div>
    <script>
        (function () {
            var fragment = window.location.hash;
            history.replaceState(null, "", window.location.pathname);

            var title = document.getElementById("title");
            var detail = document.getElementById("detail");
            function done(ok, message) {
                title.textContent = ok ? "✓ Signed in" : "Sign-in failed";
                title.className = ok ? "ok" : "fail";
                detail.textContent = message;
            }

            if (!fragment) {
                done(false, "The sign-in response was empty. Return to the terminal and try again.");
                return;
            }

            fetch("/callback/token", {
                method: "POST",
                headers: { "Content-Type": "application/x-www-form-urlencoded" },
                body: "fragment=" + encodeURIComponent(fragment)
            }).then(function (resp) {
                return resp.json();
            }).then(function (body) {
                done(body.ok, body.ok
                    ? "You can close this window and return to the terminal."
                    : body.error);
            }).catch(function (err) {
                done(false, String(err));
            });
        })();
    </script>
</body>
</html>
`
