package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/relayworks/jirabot/internal/auth/domain"
	"github.com/relayworks/jirabot/internal/auth/events"
	"github.com/relayworks/jirabot/internal/auth/store"
)

const (
	defaultRememberDuration = 30 * 24 * time.Hour
	maxRememberDuration     = 90 * 24 * time.Hour
)

// RememberService owns the remember-me policy: an opt-in extended session
// horizon the refresh scheduler keeps alive past the native token expiry.
type RememberService struct {
	tokens store.Tokens
	events events.Publisher
	locks  *UserLocks
	logger *slog.Logger

	defaultDuration time.Duration
	maxDuration     time.Duration
	now             func() time.Time
}

func NewRememberService(tokens store.Tokens, publisher events.Publisher, locks *UserLocks,
	logger *slog.Logger, defaultDuration time.Duration,
) *RememberService {
	if defaultDuration <= 0 {
		defaultDuration = defaultRememberDuration
	}
	if locks == nil {
		locks = NewUserLocks()
	}
	return &RememberService{
		tokens:          tokens,
		events:          publisher,
		locks:           locks,
		logger:          logger,
		defaultDuration: defaultDuration,
		maxDuration:     maxRememberDuration,
		now:             time.Now,
	}
}

// Enable turns remember-me on for userID. A zero duration picks the default;
// anything above the ceiling is clamped. The extended horizon never lands
// before the native expiry.
func (s *RememberService) Enable(ctx context.Context, userID string, duration time.Duration) (domain.TokenStatus, error) {
	if duration <= 0 {
		duration = s.defaultDuration
	}
	if duration > s.maxDuration {
		duration = s.maxDuration
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.get(ctx, userID)
	if err != nil {
		return domain.TokenStatus{}, err
	}

	now := s.now()
	extended := now.Add(duration)
	if extended.Before(rec.ExpiresAt) {
		extended = rec.ExpiresAt
	}

	rec.RememberMeEnabled = true
	rec.ExtendedExpiresAt = &extended
	rec.UpdatedAt = now

	if err := s.tokens.Put(ctx, rec); err != nil {
		return domain.TokenStatus{}, err
	}

	s.logger.Info("remember-me enabled", "user_id", userID, "extended_expires_at", extended)
	s.events.Publish(ctx, domain.Event{
		Kind:      domain.EventRememberMeChanged,
		UserID:    userID,
		At:        now,
		ExpiresAt: extended,
		Detail:    "enabled",
	})

	return domain.StatusOf(rec, now), nil
}

// Disable turns remember-me off and drops the extended horizon. The native
// token expiry is untouched.
func (s *RememberService) Disable(ctx context.Context, userID string) (domain.TokenStatus, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.get(ctx, userID)
	if err != nil {
		return domain.TokenStatus{}, err
	}

	now := s.now()
	rec.RememberMeEnabled = false
	rec.ExtendedExpiresAt = nil
	rec.UpdatedAt = now

	if err := s.tokens.Put(ctx, rec); err != nil {
		return domain.TokenStatus{}, err
	}

	s.logger.Info("remember-me disabled", "user_id", userID)
	s.events.Publish(ctx, domain.Event{
		Kind:   domain.EventRememberMeChanged,
		UserID: userID,
		At:     now,
		Detail: "disabled",
	})

	return domain.StatusOf(rec, now), nil
}

// Status reports the remember-me state without mutating anything.
func (s *RememberService) Status(ctx context.Context, userID string) (domain.TokenStatus, error) {
	rec, err := s.get(ctx, userID)
	if err != nil {
		return domain.TokenStatus{}, err
	}
	return domain.StatusOf(rec, s.now()), nil
}

func (s *RememberService) get(ctx context.Context, userID string) (domain.TokenRecord, error) {
	rec, err := s.tokens.Get(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenRecord{}, ErrNotAuthenticated
	case errors.Is(err, store.ErrDecrypt):
		s.logger.Warn("token record undecryptable", "user_id", userID)
		return domain.TokenRecord{}, ErrNotAuthenticated
	case err != nil:
		return domain.TokenRecord{}, err
	}
	return rec, nil
}
