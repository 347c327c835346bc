package agentsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotAuthenticated reports that the bridge has no valid session for the
// user.
var ErrNotAuthenticated = errors.New("agentsdk: not authenticated")

// StatusResponse mirrors the bridge's token status body.
type StatusResponse struct {
	Valid             bool       `json:"valid"`
	ExpiresInSeconds  int64      `json:"expires_in_seconds"`
	ExpiresAt         time.Time  `json:"expires_at"`
	CloudID           string     `json:"cloud_id"`
	RememberMeEnabled bool       `json:"remember_me_enabled"`
	ExtendedExpiresAt *time.Time `json:"extended_expires_at"`
}

// Client talks to the auth bridge's /auth/oauth surface.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// LoginURL is the bridge endpoint the extension opens in a tab to start a
// login for userID.
func (c *Client) LoginURL(userID string) string {
	return c.BaseURL + "/auth/oauth/login?user_id=" + url.QueryEscape(userID)
}

// Status fetches the current token status. Returns ErrNotAuthenticated when
// the bridge has no valid session.
func (c *Client) Status(ctx context.Context, userID string) (StatusResponse, error) {
	var status StatusResponse
	err := c.getJSON(ctx, "/auth/oauth/status?user_id="+url.QueryEscape(userID), &status)
	return status, err
}

// Logout deletes the user's session on the bridge.
func (c *Client) Logout(ctx context.Context, userID string) error {
	return c.postJSON(ctx, "/auth/oauth/logout?user_id="+url.QueryEscape(userID), nil)
}

// EnableRememberMe turns on the extended session horizon.
func (c *Client) EnableRememberMe(ctx context.Context, userID string) (StatusResponse, error) {
	var status StatusResponse
	err := c.postJSON(ctx, "/auth/oauth/remember-me/enable?user_id="+url.QueryEscape(userID), &status)
	return status, err
}

// DisableRememberMe turns the extended session horizon off.
func (c *Client) DisableRememberMe(ctx context.Context, userID string) (StatusResponse, error) {
	var status StatusResponse
	err := c.postJSON(ctx, "/auth/oauth/remember-me/disable?user_id="+url.QueryEscape(userID), &status)
	return status, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrNotAuthenticated
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("agentsdk: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
