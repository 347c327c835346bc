// Package app wires configuration, storage, the provider client, and the
// lifecycle services into a runnable auth bridge.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/relayworks/jirabot/internal/auth/events"
	httpapi "github.com/relayworks/jirabot/internal/auth/http"
	"github.com/relayworks/jirabot/internal/auth/pending"
	"github.com/relayworks/jirabot/internal/auth/provider"
	"github.com/relayworks/jirabot/internal/auth/service"
	"github.com/relayworks/jirabot/internal/auth/store"
	"github.com/relayworks/jirabot/internal/auth/store/drivers/postgres"
	"github.com/relayworks/jirabot/internal/auth/store/drivers/sqlite"
	"github.com/relayworks/jirabot/pkg/cryptox"
	"github.com/relayworks/jirabot/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth bridge with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	sealer  *cryptox.Sealer
	pending pending.Store
	events  events.Publisher

	loginService     *service.LoginService
	rememberService  *service.RememberService
	refreshScheduler *service.RefreshScheduler

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "jirabot-authbridge",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := initSentry(cfg.SentryDSN, cfg.Env); err != nil {
		app.logger.Error("sentry init failed", "error", err)
	}

	sealer, err := cryptox.NewSealerFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealing key: %w", err)
	}
	app.sealer = sealer

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	pendingStore, err := pending.New(cfg.RedisURL)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize pending login store: %w", err)
	}
	app.pending = pendingStore

	app.initEvents()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.refreshScheduler.Start()

	app.logger.Info("auth bridge starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth bridge...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.refreshScheduler.Stop()

	if err := app.events.Close(); err != nil {
		app.logger.Error("error closing event publisher", "error", err)
	}
	if err := app.pending.Close(); err != nil {
		app.logger.Error("error closing pending login store", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	sentry.Flush(2 * time.Second)

	app.logger.Info("auth bridge stopped")
	return nil
}

// initDatabase picks the storage driver and applies migrations. A DATABASE_URL
// selects postgres; the default is the embedded SQLite file.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	if app.cfg.DatabaseURL != "" {
		db, err = postgres.NewStore(context.Background(), app.cfg.DatabaseURL, app.sealer)
	} else {
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn, app.sealer)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initEvents installs the structured log sink and, when a broker is
// configured, the AMQP mirror.
func (app *Application) initEvents() {
	sinks := events.Multi{events.NewLogPublisher(app.logger)}

	if app.cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(app.cfg.AMQPURL, app.logger)
		if err != nil {
			app.logger.Error("amqp publisher init failed, events stay log-only", "error", err)
		} else {
			sinks = append(sinks, amqpPub)
			app.logger.Info("amqp event publisher enabled")
		}
	}

	app.events = sinks
}

func (app *Application) initServices() {
	providerCfg := provider.Config{
		ClientID:     app.cfg.OAuthClientID,
		ClientSecret: app.cfg.OAuthClientSecret,
		RedirectURI:  app.cfg.OAuthRedirectURI,
		Scopes:       app.cfg.OAuthScopes,
	}
	if err := applyProviderFile(&providerCfg, app.cfg.ProviderFile); err != nil {
		app.logger.Error("provider file ignored", "error", err)
	}
	prov := provider.New(providerCfg)

	locks := service.NewUserLocks()
	tokens := app.db.Tokens()

	app.loginService = service.NewLoginService(
		service.LoginServiceConfig{
			StateSecret: app.sealer.StateSecret(),
			LoginTTL:    app.cfg.LoginTTL,
		},
		tokens, app.pending, prov, app.events, locks, app.logger,
	)

	app.rememberService = service.NewRememberService(
		tokens, app.events, locks, app.logger, app.cfg.RememberDuration,
	)

	app.refreshScheduler = service.NewRefreshScheduler(
		tokens, prov, app.events, locks, app.logger,
		app.cfg.RefreshInterval, app.cfg.RefreshThreshold,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.LoginService = app.loginService
	router.RememberService = app.rememberService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func initSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          BuildVersion,
		AttachStacktrace: true,
	})
}
