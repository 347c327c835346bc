package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeURL(t *testing.T) {
	p := New(Config{
		ClientID:    "client-1",
		RedirectURI: "https://bridge.example.com/auth/oauth/callback",
		Scopes:      []string{"read:jira-work", "offline_access"},
	})

	raw := p.AuthorizeURL("signed-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "read:jira-work offline_access", q.Get("scope"))
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "api.atlassian.com", q.Get("audience"))
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var grant map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))
		assert.Equal(t, "authorization_code", grant["grant_type"])
		assert.Equal(t, "the-code", grant["code"])
		assert.Equal(t, "client-1", grant["client_id"])

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	p := New(Config{ClientID: "client-1", ClientSecret: "secret", TokenURL: srv.URL})

	tok, err := p.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.Equal(t, time.Hour, tok.ExpiresIn)
}

func TestExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New(Config{TokenURL: srv.URL})

	_, err := p.Exchange(context.Background(), "stale-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefreshSendsRefreshGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var grant map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))
		assert.Equal(t, "refresh_token", grant["grant_type"])
		assert.Equal(t, "rt-old", grant["refresh_token"])

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-new",
			"refresh_token": "rt-new",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	p := New(Config{TokenURL: srv.URL})

	tok, err := p.Refresh(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "rt-new", tok.RefreshToken)
}

func TestRevokeWithoutEndpointIsNoop(t *testing.T) {
	p := New(Config{})
	assert.NoError(t, p.Revoke(context.Background(), "at-1"))
}

func TestResolveCloudID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "cloud-abc", "name": "example.atlassian.net"},
			{"id": "cloud-def", "name": "other.atlassian.net"},
		})
	}))
	defer srv.Close()

	p := New(Config{ResourcesURL: srv.URL})

	cloudID, err := p.ResolveCloudID(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "cloud-abc", cloudID)
}

func TestResolveCloudIDEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer srv.Close()

	p := New(Config{ResourcesURL: srv.URL})

	_, err := p.ResolveCloudID(context.Background(), "at-1")
	assert.Error(t, err)
}

func TestTimeoutBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := New(Config{TokenURL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := p.Exchange(context.Background(), "code")
	assert.Error(t, err)
}
