package http

import (
	"net/http"

	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/pkg/httpx"
	"github.com/relayworks/jirabot/pkg/slogx"
)

// LogoutHandler serves /auth/oauth/logout on both POST (the extension) and
// GET (a plain browser navigation). Logout is idempotent: an unauthenticated
// user logging out still gets 200.
type LogoutHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Revokes the user's tokens at the provider (best effort) and deletes the stored record.
//	@Description	Idempotent: returns 200 even when no session existed.
//	@Tags			OAuth
//	@Produce		json
//	@Param			user_id	query		string	true	"Extension-assigned user identity"
//	@Success		200		{object}	map[string]string	"status"
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Failure		500		{object}	map[string]string	"error, error_description"
//	@Router			/auth/oauth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	if err := h.LoginService.Logout(ctx, userID); err != nil {
		log.Error("logout failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"could not complete logout")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
