// Package http exposes the token lifecycle over the /auth/oauth/* surface the
// browser extension talks to.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/internal/auth/store"
	"github.com/relayworks/jirabot/pkg/httpx"
	"github.com/relayworks/jirabot/pkg/slogx"

	_ "github.com/relayworks/jirabot/api/authbridge" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	LoginService    *service.LoginService
	RememberService *service.RememberService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth()
	r.registerRememberMe()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Jira Chatbot Auth Bridge API
//	@version		0.1.0
//	@description	Multi-user OAuth 2.0 token lifecycle for the Jira chatbot browser extension:
//	@description	login, callback, status, logout, and the remember-me session policy.
//	@description
//	@description	Access and refresh tokens never leave this service; clients only ever see token metadata.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth() {
	loginHandler := &LoginHandler{LoginService: r.LoginService}
	r.Mux.Handle("GET /auth/oauth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIPAndUser(httpx.StrictLimit),
		),
	)

	callbackHandler := &CallbackHandler{LoginService: r.LoginService, Logger: r.logger}
	r.Mux.Handle("GET /auth/oauth/callback",
		httpx.Chain(callbackHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /auth/oauth/complete",
		httpx.Chain(&CompleteHandler{},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	statusHandler := &StatusHandler{LoginService: r.LoginService}
	r.Mux.Handle("GET /auth/oauth/status",
		httpx.Chain(statusHandler,
			httpx.RateLimitByIPAndUser(httpx.LenientLimit),
		),
	)

	// Logout accepts both methods: POST from the extension, GET from a
	// plain browser navigation.
	logoutHandler := &LogoutHandler{LoginService: r.LoginService}
	r.Mux.Handle("POST /auth/oauth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIPAndUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/oauth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIPAndUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerRememberMe() {
	h := &RememberMeHandler{RememberService: r.RememberService}

	r.Mux.Handle("POST /auth/oauth/remember-me/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			httpx.RateLimitByIPAndUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/oauth/remember-me/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.RateLimitByIPAndUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/oauth/remember-me/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.RateLimitByIPAndUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
