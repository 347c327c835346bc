package authbridge_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relayworks/jirabot/internal/auth/events"
	httpapi "github.com/relayworks/jirabot/internal/auth/http"
	"github.com/relayworks/jirabot/internal/auth/pending"
	"github.com/relayworks/jirabot/internal/auth/provider"
	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/internal/auth/store/drivers/sqlite"
	"github.com/relayworks/jirabot/pkg/cryptox"
	"github.com/relayworks/jirabot/pkg/slogx"
)

// fakeAtlassian is a scripted identity provider covering the token and
// accessible-resources endpoints the bridge talks to.
type fakeAtlassian struct {
	mu sync.Mutex

	expiresIn   int
	serial      int
	refreshed   int
	revoked     int
	failRefresh bool

	srv *httptest.Server
}

func newFakeAtlassian(t *testing.T) *fakeAtlassian {
	t.Helper()
	f := &fakeAtlassian{expiresIn: 3600}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var grant map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))

		f.mu.Lock()
		defer f.mu.Unlock()

		if grant["grant_type"] == "refresh_token" {
			f.refreshed++
			if f.failRefresh {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
				return
			}
		}
		f.serial++

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-" + strconv.Itoa(f.serial),
			"refresh_token": "rt-" + strconv.Itoa(f.serial),
			"expires_in":    f.expiresIn,
		})
	})
	mux.HandleFunc("GET /oauth/token/accessible-resources", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "cloud-e2e", "name": "e2e.atlassian.net"},
		})
	})
	mux.HandleFunc("POST /oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.revoked++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// bridge is the whole service wired in-process over a temp SQLite file.
type bridge struct {
	srv       *httptest.Server
	scheduler *service.RefreshScheduler
	atlassian *fakeAtlassian
}

func newBridge(t *testing.T, refreshThreshold time.Duration) *bridge {
	t.Helper()

	atlassian := newFakeAtlassian(t)
	dir := t.TempDir()

	sealer, err := cryptox.NewSealerFromFile(filepath.Join(dir, "seal.key"))
	require.NoError(t, err)

	st, err := sqlite.NewStore("file:"+filepath.Join(dir, "auth.db"), sealer)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pendingStore, err := pending.New("")
	require.NoError(t, err)
	t.Cleanup(func() { pendingStore.Close() })

	logger := slogx.New(slogx.Config{Service: "e2e", Level: "error", Format: "text"})
	publisher := events.NewLogPublisher(logger)

	prov := provider.New(provider.Config{
		ClientID:     "e2e-client",
		ClientSecret: "e2e-secret",
		RedirectURI:  "http://bridge.test/auth/oauth/callback",
		Scopes:       []string{"read:jira-work", "offline_access"},
		AuthURL:      atlassian.srv.URL + "/authorize",
		TokenURL:     atlassian.srv.URL + "/oauth/token",
		ResourcesURL: atlassian.srv.URL + "/oauth/token/accessible-resources",
		RevokeURL:    atlassian.srv.URL + "/oauth/revoke",
	})

	locks := service.NewUserLocks()
	router := httpapi.NewRouter("e2e", st, logger)
	router.LoginService = service.NewLoginService(
		service.LoginServiceConfig{StateSecret: sealer.StateSecret()},
		st.Tokens(), pendingStore, prov, publisher, locks, logger,
	)
	router.RememberService = service.NewRememberService(
		st.Tokens(), publisher, locks, logger, 0,
	)
	router.ApplyRoutes()

	scheduler := service.NewRefreshScheduler(
		st.Tokens(), prov, publisher, locks, logger,
		time.Minute, refreshThreshold,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &bridge{srv: srv, scheduler: scheduler, atlassian: atlassian}
}

// noRedirectClient returns the redirect responses themselves so tests can
// play the browser's role step by step.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}
