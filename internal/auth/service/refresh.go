package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/relayworks/jirabot/internal/auth/domain"
	"github.com/relayworks/jirabot/internal/auth/events"
	"github.com/relayworks/jirabot/internal/auth/store"
)

const (
	defaultRefreshInterval  = 1 * time.Minute
	defaultRefreshThreshold = 5 * time.Minute
	refreshGrantTimeout     = 15 * time.Second
)

// RefreshScheduler keeps stored tokens fresh by sweeping all records on a
// fixed interval and renewing any whose access token is close to expiry.
// Exactly one instance runs per process; a second Start is a logged no-op.
type RefreshScheduler struct {
	tokens   store.Tokens
	provider Provider
	events   events.Publisher
	locks    *UserLocks
	logger   *slog.Logger

	interval  time.Duration
	threshold time.Duration
	now       func() time.Time

	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshScheduler builds a scheduler. Zero interval or threshold pick the
// defaults.
func NewRefreshScheduler(tokens store.Tokens, provider Provider, publisher events.Publisher,
	locks *UserLocks, logger *slog.Logger, interval, threshold time.Duration,
) *RefreshScheduler {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if threshold <= 0 {
		threshold = defaultRefreshThreshold
	}
	if locks == nil {
		locks = NewUserLocks()
	}
	return &RefreshScheduler{
		tokens:    tokens,
		provider:  provider,
		events:    publisher,
		locks:     locks,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut it
// down. Calling Start twice does not spawn a second worker.
func (s *RefreshScheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Warn("refresh scheduler already started, ignoring second start")
		return
	}
	go s.run()
	s.logger.Info("refresh scheduler started",
		"interval", s.interval, "threshold", s.threshold)
}

// Stop shuts the worker down and blocks until any in-progress sweep finishes.
// Safe to call when the scheduler never started.
func (s *RefreshScheduler) Stop() {
	if !s.started.Load() {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("refresh scheduler stopped")
}

func (s *RefreshScheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep walks every stored record once and refreshes the ones that need it.
// Exported so tests and operational tooling can trigger a pass directly.
func (s *RefreshScheduler) Sweep(ctx context.Context) {
	recs, err := s.tokens.ListAll(ctx)
	if err != nil {
		s.logger.Error("refresh sweep listing failed", "error", err)
		return
	}

	now := s.now()
	for _, rec := range recs {
		if !s.shouldRefresh(rec, now) {
			continue
		}
		s.refreshOne(ctx, rec.UserID)
	}
}

// shouldRefresh decides from a snapshot whether a record is worth renewing:
// it still has a refresh token, the session horizon has not passed, and the
// access token runs out within the threshold. Records whose secrets failed to
// decrypt arrive with an empty refresh token and fall out on the first check.
func (s *RefreshScheduler) shouldRefresh(rec domain.TokenRecord, now time.Time) bool {
	if rec.RefreshToken == "" {
		return false
	}
	if !now.Before(rec.EffectiveExpiry()) {
		return false
	}
	return rec.ExpiresAt.Sub(now) < s.threshold
}

// refreshOne renews a single user's token under that user's lock. The record
// is re-read after acquiring the lock: a logout that raced the sweep wins,
// and nothing is written back for a vanished record.
func (s *RefreshScheduler) refreshOne(ctx context.Context, userID string) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.tokens.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrDecrypt) {
			s.logger.Error("refresh re-read failed", "user_id", userID, "error", err)
		}
		return
	}

	now := s.now()
	if !s.shouldRefresh(rec, now) {
		return
	}

	gctx, cancel := context.WithTimeout(ctx, refreshGrantTimeout)
	tok, err := s.provider.Refresh(gctx, rec.RefreshToken)
	cancel()

	rec.RefreshAttemptCount++

	if err != nil {
		rec.RefreshFailureCount++
		rec.UpdatedAt = now
		if putErr := s.tokens.Put(ctx, rec); putErr != nil {
			s.logger.Error("refresh failure persist failed", "user_id", userID, "error", putErr)
		}
		s.logger.Warn("token refresh failed", "user_id", userID, "error", err)
		s.events.Publish(ctx, domain.Event{
			Kind:   domain.EventRefreshFailed,
			UserID: userID,
			At:     now,
			Detail: err.Error(),
		})
		return
	}

	rec.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		// Provider rotated the refresh token; the old one is dead.
		rec.RefreshToken = tok.RefreshToken
	}
	rec.ExpiresAt = now.Add(tok.ExpiresIn)
	rec.RefreshSuccessCount++
	rec.LastRefreshedAt = &now
	rec.UpdatedAt = now

	// The extended horizon never trails the native expiry.
	if rec.RememberMeEnabled && rec.ExtendedExpiresAt != nil && rec.ExtendedExpiresAt.Before(rec.ExpiresAt) {
		rec.ExtendedExpiresAt = &rec.ExpiresAt
	}

	if err := s.tokens.Put(ctx, rec); err != nil {
		s.logger.Error("refresh persist failed", "user_id", userID, "error", err)
		return
	}

	s.logger.Info("token refreshed", "user_id", userID, "expires_at", rec.ExpiresAt)
	s.events.Publish(ctx, domain.Event{
		Kind:      domain.EventTokenRefreshed,
		UserID:    userID,
		At:        now,
		ExpiresAt: rec.ExpiresAt,
	})
}
