package domain

import "time"

// PendingLogin is the server-side half of an in-flight authorization attempt.
// One is created when the authorization URL is issued and consumed exactly
// once by the matching callback; expiry bounds how long a login tab can sit
// idle before the state stops being accepted.
type PendingLogin struct {
	Nonce     string    `json:"nonce"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProviderToken is what the identity provider returns from a code exchange or
// a refresh grant.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}
