package http

import (
	"errors"
	"net/http"

	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/pkg/httpx"
	"github.com/relayworks/jirabot/pkg/slogx"
)

// StatusHandler serves GET /auth/oauth/status: the metadata-only view of a
// user's token the extension polls. Token values never appear in the
// response.
type StatusHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP godoc
//
//	@Summary		Token Status
//	@Description	Returns validity, expiry, tenant, remember-me state, and refresh telemetry for the user's stored token.
//	@Description	Never returns the token values themselves.
//	@Tags			OAuth
//	@Produce		json
//	@Param			user_id	query		string	true	"Extension-assigned user identity"
//	@Success		200		{object}	domain.TokenStatus
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Failure		401		{object}	map[string]string	"error, error_description"
//	@Router			/auth/oauth/status [get].
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	status, err := h.LoginService.Status(ctx, userID)
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated",
			"no valid session for this user")
		return
	case err != nil:
		log.Error("status read failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"could not read token status")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}
