// Package service implements the token lifecycle policies: the authorization
// flow, status reads, logout, remember-me, and the background refresher.
// Storage drivers and the provider client stay mechanism-only; every decision
// about what a token means lives here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/relayworks/jirabot/internal/auth/domain"
	"github.com/relayworks/jirabot/internal/auth/events"
	"github.com/relayworks/jirabot/internal/auth/pending"
	"github.com/relayworks/jirabot/internal/auth/store"
	"github.com/relayworks/jirabot/pkg/idx"
)

const (
	defaultLoginTTL   = 10 * time.Minute
	revokeTimeout     = 5 * time.Second
	enrichmentTimeout = 10 * time.Second
)

// LoginServiceConfig carries the knobs for LoginService. Zero values pick
// sane defaults.
type LoginServiceConfig struct {
	// StateSecret signs the OAuth state parameter.
	StateSecret []byte

	// LoginTTL bounds how long an issued authorization URL stays valid.
	LoginTTL time.Duration
}

// LoginService runs the authorization-code flow end to end and owns status
// reads and logout.
type LoginService struct {
	cfg      LoginServiceConfig
	tokens   store.Tokens
	pending  pending.Store
	provider Provider
	events   events.Publisher
	locks    *UserLocks
	logger   *slog.Logger
	now      func() time.Time

	enrichWG sync.WaitGroup
}

func NewLoginService(cfg LoginServiceConfig, tokens store.Tokens, pendingStore pending.Store,
	provider Provider, publisher events.Publisher, locks *UserLocks, logger *slog.Logger,
) *LoginService {
	if cfg.LoginTTL <= 0 {
		cfg.LoginTTL = defaultLoginTTL
	}
	if locks == nil {
		locks = NewUserLocks()
	}
	return &LoginService{
		cfg:      cfg,
		tokens:   tokens,
		pending:  pendingStore,
		provider: provider,
		events:   publisher,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
	}
}

// BeginLogin records a pending login for userID and returns the provider
// authorization URL the browser should be sent to. Each call issues a fresh
// single-use nonce; starting a second login before finishing the first simply
// supersedes nothing, both nonces stay valid until consumed or expired.
func (s *LoginService) BeginLogin(ctx context.Context, userID string) (string, error) {
	now := s.now()
	nonce := idx.New().String()

	err := s.pending.Put(ctx, domain.PendingLogin{
		Nonce:     nonce,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.LoginTTL),
	})
	if err != nil {
		return "", err
	}

	state, err := signState(s.cfg.StateSecret, userID, nonce, s.cfg.LoginTTL, now)
	if err != nil {
		return "", err
	}

	s.logger.Info("login started", "user_id", userID)
	return s.provider.AuthorizeURL(state), nil
}

// CallbackParams is what the provider redirect delivered.
type CallbackParams struct {
	State            string
	Code             string
	ErrorParam       string
	ErrorDescription string
}

// HandleCallback validates the provider redirect, exchanges the code, and
// persists the resulting token record. It returns the user the login belongs
// to so the handler can render a per-user completion page.
//
// The pending nonce is consumed before the exchange, so a replayed callback
// fails closed even when the first attempt errored mid-exchange.
func (s *LoginService) HandleCallback(ctx context.Context, p CallbackParams) (string, error) {
	if p.ErrorParam != "" {
		// Denied consent or provider-side failure. Consume the nonce if the
		// state still parses so the attempt cannot be retried.
		if _, nonce, err := parseState(s.cfg.StateSecret, p.State); err == nil {
			_, _ = s.pending.Consume(ctx, nonce)
		}
		reason := p.ErrorParam
		if p.ErrorDescription != "" {
			reason += ": " + p.ErrorDescription
		}
		return "", &CallbackError{Reason: reason}
	}

	userID, nonce, err := parseState(s.cfg.StateSecret, p.State)
	if err != nil {
		return "", &CallbackError{Reason: "invalid state parameter"}
	}

	login, err := s.pending.Consume(ctx, nonce)
	if err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			return "", &CallbackError{Reason: "unknown or already used login"}
		}
		return "", err
	}
	if login.UserID != userID {
		return "", &CallbackError{Reason: "state does not match pending login"}
	}

	if p.Code == "" {
		return "", &CallbackError{Reason: "missing authorization code"}
	}

	tok, err := s.provider.Exchange(ctx, p.Code)
	if err != nil {
		return "", &ExchangeError{Err: err}
	}

	now := s.now()
	rec := domain.TokenRecord{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    now.Add(tok.ExpiresIn),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	unlock := s.locks.Lock(userID)
	err = s.tokens.Put(ctx, rec)
	unlock()
	if err != nil {
		return "", err
	}

	s.logger.Info("login completed", "user_id", userID)
	s.events.Publish(ctx, domain.Event{
		Kind:      domain.EventTokenAcquired,
		UserID:    userID,
		At:        now,
		ExpiresAt: rec.ExpiresAt,
	})

	// The record is already durable; the cloud id lookup must not delay the
	// completion redirect.
	s.enrichWG.Add(1)
	go func() {
		defer s.enrichWG.Done()
		s.enrichCloudID(userID, tok.AccessToken)
	}()

	return userID, nil
}

// enrichCloudID resolves the Jira Cloud tenant after the record is durable.
// Failures are logged and forgotten; the login already succeeded.
func (s *LoginService) enrichCloudID(userID, accessToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichmentTimeout)
	defer cancel()

	cloudID, err := s.provider.ResolveCloudID(ctx, accessToken)
	if err != nil {
		s.logger.Warn("cloud id resolution failed", "user_id", userID, "error", err)
		return
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.tokens.Get(ctx, userID)
	if err != nil {
		// Logged out (or record became unreadable) between the put and the
		// enrichment. The delete wins; do not resurrect anything.
		return
	}
	rec.CloudID = cloudID
	rec.UpdatedAt = s.now()

	if err := s.tokens.Put(ctx, rec); err != nil {
		s.logger.Warn("cloud id persist failed", "user_id", userID, "error", err)
	}
}

// Status returns the public token status for userID. Purely a read; it never
// mutates the record.
func (s *LoginService) Status(ctx context.Context, userID string) (domain.TokenStatus, error) {
	rec, err := s.tokens.Get(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenStatus{}, ErrNotAuthenticated
	case errors.Is(err, store.ErrDecrypt):
		s.logger.Warn("token record undecryptable", "user_id", userID)
		return domain.TokenStatus{}, ErrNotAuthenticated
	case err != nil:
		return domain.TokenStatus{}, err
	}
	return domain.StatusOf(rec, s.now()), nil
}

// Logout revokes the user's tokens at the provider (best effort) and deletes
// the stored record. Always idempotent: logging out an unauthenticated user
// succeeds.
func (s *LoginService) Logout(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.tokens.Get(ctx, userID)
	had := err == nil

	if had && rec.RefreshToken != "" {
		rctx, cancel := context.WithTimeout(ctx, revokeTimeout)
		if err := s.provider.Revoke(rctx, rec.RefreshToken); err != nil {
			s.logger.Warn("provider revoke failed", "user_id", userID, "error", err)
		}
		cancel()
	}

	// Local deletion is unconditional; an unreadable or missing record is
	// still an honest logout.
	if err := s.tokens.Delete(ctx, userID); err != nil {
		return err
	}

	if had {
		s.logger.Info("logout completed", "user_id", userID)
		s.events.Publish(ctx, domain.Event{
			Kind:   domain.EventTokenRevoked,
			UserID: userID,
			At:     s.now(),
		})
	}
	return nil
}
