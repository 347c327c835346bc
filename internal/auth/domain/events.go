package domain

import "time"

// EventKind identifies a token lifecycle transition.
type EventKind string

const (
	EventTokenAcquired     EventKind = "token.acquired"
	EventTokenRefreshed    EventKind = "token.refreshed"
	EventRefreshFailed     EventKind = "token.refresh_failed"
	EventTokenRevoked      EventKind = "token.revoked"
	EventRememberMeChanged EventKind = "token.remember_me_changed"
)

// Event describes a token lifecycle transition for a single user. Events are
// advisory; consumers (notification workers, the dashboard) must tolerate
// loss.
type Event struct {
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Detail    string    `json:"detail,omitempty"`
}
