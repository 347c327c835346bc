package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/pkg/httpx"
	"github.com/relayworks/jirabot/pkg/slogx"
)

// RememberMeHandler serves the /auth/oauth/remember-me/* endpoints.
type RememberMeHandler struct {
	RememberService *service.RememberService
}

type rememberEnableRequest struct {
	// DurationHours optionally overrides the default extended horizon.
	// Clamped server-side; zero means the default.
	DurationHours int `json:"duration_hours"`
}

// HandleEnable godoc
//
//	@Summary		Enable Remember-Me
//	@Description	Turns on the extended session horizon for the user. The refresh scheduler keeps the token
//	@Description	alive past its native expiry until the extended horizon passes.
//	@Tags			RememberMe
//	@Accept			json
//	@Produce		json
//	@Param			user_id	query		string					true	"Extension-assigned user identity"
//	@Param			body	body		rememberEnableRequest	false	"Optional duration override"
//	@Success		200		{object}	domain.TokenStatus
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Failure		401		{object}	map[string]string	"error, error_description"
//	@Router			/auth/oauth/remember-me/enable [post].
func (h *RememberMeHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	var req rememberEnableRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
	}
	if req.DurationHours < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"duration_hours must not be negative")
		return
	}

	status, err := h.RememberService.Enable(ctx, userID,
		time.Duration(req.DurationHours)*time.Hour)
	if err != nil {
		writeRememberError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleDisable godoc
//
//	@Summary		Disable Remember-Me
//	@Description	Drops the extended session horizon. The native token expiry is unaffected.
//	@Tags			RememberMe
//	@Produce		json
//	@Param			user_id	query		string	true	"Extension-assigned user identity"
//	@Success		200		{object}	domain.TokenStatus
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Failure		401		{object}	map[string]string	"error, error_description"
//	@Router			/auth/oauth/remember-me/disable [post].
func (h *RememberMeHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	status, err := h.RememberService.Disable(ctx, userID)
	if err != nil {
		writeRememberError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleStatus godoc
//
//	@Summary		Remember-Me Status
//	@Description	Reports whether remember-me is enabled and the current extended horizon.
//	@Tags			RememberMe
//	@Produce		json
//	@Param			user_id	query		string	true	"Extension-assigned user identity"
//	@Success		200		{object}	domain.TokenStatus
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Failure		401		{object}	map[string]string	"error, error_description"
//	@Router			/auth/oauth/remember-me/status [get].
func (h *RememberMeHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	status, err := h.RememberService.Status(ctx, userID)
	if err != nil {
		writeRememberError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}

func writeRememberError(w http.ResponseWriter, log *slog.Logger, err error) {
	if errors.Is(err, service.ErrNotAuthenticated) {
		httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated",
			"no valid session for this user")
		return
	}
	log.Error("remember-me operation failed", "error", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error",
		"could not update remember-me state")
}
