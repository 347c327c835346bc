package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/pkg/httpx"
)

// CallbackHandler serves GET /auth/oauth/callback, the provider redirect
// target. Whatever happens, the browser ends up on the completion page with
// an explicit status query parameter; the extension watches the tab URL for
// it.
type CallbackHandler struct {
	LoginService *service.LoginService
	Logger       *slog.Logger
}

// ServeHTTP godoc
//
//	@Summary		OAuth Callback
//	@Description	Handles the identity provider redirect: validates the signed state, consumes the pending login,
//	@Description	exchanges the authorization code, and stores the resulting tokens.
//	@Description	Always redirects to /auth/oauth/complete with status=success or status=error.
//	@Tags			OAuth
//	@Param			state				query	string	true	"Signed state from the authorization request"
//	@Param			code				query	string	false	"Authorization code"
//	@Param			error				query	string	false	"Provider error code when consent was denied"
//	@Param			error_description	query	string	false	"Provider error detail"
//	@Success		302					"Redirect to the completion page"
//	@Router			/auth/oauth/callback [get].
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := h.LoginService.HandleCallback(r.Context(), service.CallbackParams{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		ErrorParam:       q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		h.Logger.Warn("oauth callback failed", "error", err)
		h.redirectComplete(w, r, url.Values{
			"status": {"error"},
			"reason": {callbackReason(err)},
		})
		return
	}

	h.redirectComplete(w, r, url.Values{
		"status":  {"success"},
		"user_id": {userID},
	})
}

func (h *CallbackHandler) redirectComplete(w http.ResponseWriter, r *http.Request, q url.Values) {
	httpx.NoCache(w)
	http.Redirect(w, r, "/auth/oauth/complete?"+q.Encode(), http.StatusFound)
}

// callbackReason maps internal failures to the coarse reason codes shown on
// the completion page. Provider error detail stays in the logs.
func callbackReason(err error) string {
	var cbErr *service.CallbackError
	if errors.As(err, &cbErr) {
		return "callback_rejected"
	}
	var exErr *service.ExchangeError
	if errors.As(err, &exErr) {
		return "exchange_failed"
	}
	return "server_error"
}

// CompleteHandler serves GET /auth/oauth/complete: the terminal page of a
// login attempt. It renders a minimal human-readable confirmation; the
// machine-readable outcome is the query string itself.
type CompleteHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Login Completion Page
//	@Description	Terminal page after an OAuth flow. The query string carries status=success or status=error plus a reason code.
//	@Tags			OAuth
//	@Produce		html
//	@Param			status	query	string	true	"success or error"
//	@Param			reason	query	string	false	"Reason code when status=error"
//	@Success		200		"Completion page"
//	@Router			/auth/oauth/complete [get].
func (h *CompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if r.URL.Query().Get("status") == "success" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<!doctype html><title>Signed in</title>" +
			"<h1>Signed in</h1><p>You can close this tab and return to the extension.</p>"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!doctype html><title>Sign-in failed</title>" +
		"<h1>Sign-in failed</h1><p>Close this tab and try again from the extension.</p>"))
}
