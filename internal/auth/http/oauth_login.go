package http

import (
	"net/http"

	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/pkg/httpx"
	"github.com/relayworks/jirabot/pkg/slogx"
)

// LoginHandler serves GET /auth/oauth/login. The extension opens this URL in
// a tab; the bridge records a pending login and bounces the browser to the
// provider's consent screen.
type LoginHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP godoc
//
//	@Summary		Start OAuth Login
//	@Description	Registers a pending login for the given user and redirects the browser to the identity provider's authorization screen.
//	@Description	The state parameter carried through the redirect is signed and single-use.
//	@Tags			OAuth
//	@Param			user_id	query	string	true	"Extension-assigned user identity"
//	@Success		302		"Redirect to the provider authorization URL"
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Failure		500		{object}	map[string]string	"error, error_description"
//	@Router			/auth/oauth/login [get].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	authURL, err := h.LoginService.BeginLogin(ctx, userID)
	if err != nil {
		log.Error("begin login failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"could not start login")
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, authURL, http.StatusFound)
}
