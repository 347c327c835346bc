// Package events fans out token lifecycle notifications. Publishing is
// advisory: a sink failure is logged and never propagates into the auth flow
// that produced the event.
package events

import (
	"context"
	"log/slog"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

// Publisher delivers a lifecycle event to one sink.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
	Close() error
}

// LogPublisher writes events to the structured log. Always installed so the
// lifecycle trail exists even without a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev domain.Event) {
	attrs := []any{
		slog.String("kind", string(ev.Kind)),
		slog.String("user_id", ev.UserID),
		slog.Time("at", ev.At),
	}
	if !ev.ExpiresAt.IsZero() {
		attrs = append(attrs, slog.Time("expires_at", ev.ExpiresAt))
	}
	if ev.Detail != "" {
		attrs = append(attrs, slog.String("detail", ev.Detail))
	}
	p.logger.Info("auth_event", attrs...)
}

func (p *LogPublisher) Close() error { return nil }

// Multi publishes to every sink in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev domain.Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
