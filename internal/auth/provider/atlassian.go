// Package provider implements the outbound OAuth 2.0 client for Atlassian
// account authorization: the authorize URL, the code and refresh-token
// grants, best-effort revocation, and Jira Cloud tenant resolution.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

const (
	defaultAuthURL      = "https://auth.atlassian.com/authorize"
	defaultTokenURL     = "https://auth.atlassian.com/oauth/token"
	defaultResourcesURL = "https://api.atlassian.com/oauth/token/accessible-resources"

	defaultTimeout = 15 * time.Second
)

// Config holds the provider registration and endpoint overrides. Endpoint
// overrides exist for tests and for the config.yaml escape hatch; production
// uses the Atlassian defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	AuthURL      string
	TokenURL     string
	ResourcesURL string
	RevokeURL    string // empty disables remote revocation

	Timeout time.Duration
}

// Atlassian is the OAuth client. All network calls take a context and run on
// a client with a bounded timeout; a hung provider surfaces as an ordinary
// error, never a wedged scheduler tick.
type Atlassian struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Atlassian {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ResourcesURL == "" {
		cfg.ResourcesURL = defaultResourcesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Atlassian{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// AuthorizeURL builds the provider authorization URL carrying the signed
// state parameter.
func (a *Atlassian) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("audience", "api.atlassian.com")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("scope", strings.Join(a.cfg.Scopes, " "))
	q.Set("redirect_uri", a.cfg.RedirectURI)
	q.Set("state", state)
	q.Set("response_type", "code")
	q.Set("prompt", "consent")
	return a.cfg.AuthURL + "?" + q.Encode()
}

// Exchange redeems an authorization code for tokens.
func (a *Atlassian) Exchange(ctx context.Context, code string) (domain.ProviderToken, error) {
	return a.tokenGrant(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
		"code":          code,
		"redirect_uri":  a.cfg.RedirectURI,
	})
}

// Refresh redeems a refresh token for a new token pair. Atlassian rotates
// the refresh token on every grant, so callers must persist the returned one.
func (a *Atlassian) Refresh(ctx context.Context, refreshToken string) (domain.ProviderToken, error) {
	return a.tokenGrant(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
		"refresh_token": refreshToken,
	})
}

// tokenGrant posts a JSON grant request to the token endpoint; Atlassian's
// token endpoint speaks JSON rather than form encoding.
func (a *Atlassian) tokenGrant(ctx context.Context, grant map[string]string) (domain.ProviderToken, error) {
	body, err := json.Marshal(grant)
	if err != nil {
		return domain.ProviderToken{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return domain.ProviderToken{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.ProviderToken{}, fmt.Errorf("token grant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProviderToken{}, fmt.Errorf("token grant rejected: %s: %s",
			resp.Status, readErrorBody(resp.Body))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ProviderToken{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return domain.ProviderToken{}, fmt.Errorf("token response missing access_token")
	}

	return domain.ProviderToken{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}

// Revoke notifies the provider that a token is no longer in use. Best effort
// only: callers log failures and proceed with local deletion regardless.
func (a *Atlassian) Revoke(ctx context.Context, token string) error {
	if a.cfg.RevokeURL == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RevokeURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("revoke rejected: %s", resp.Status)
	}
	return nil
}

// ResolveCloudID looks up the first accessible Jira Cloud tenant for the
// token. This is post-login enrichment; a failure here never invalidates the
// login itself.
func (a *Atlassian) ResolveCloudID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.ResourcesURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("accessible-resources request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("accessible-resources rejected: %s", resp.Status)
	}

	var resources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&resources); err != nil {
		return "", fmt.Errorf("decode accessible-resources: %w", err)
	}
	if len(resources) == 0 {
		return "", fmt.Errorf("no accessible Jira Cloud resources for token")
	}

	return resources[0].ID, nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(body))
}
