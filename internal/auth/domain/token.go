package domain

import "time"

// TokenRecord is the stored OAuth token state for one extension identity.
// There is at most one record per user ID; a new login for the same identity
// replaces the previous record entirely.
type TokenRecord struct {
	UserID string

	// AccessToken and RefreshToken are plaintext in memory only. The store
	// drivers seal them before they touch disk.
	AccessToken  string
	RefreshToken string

	// ExpiresAt is the provider's native access token expiry.
	ExpiresAt time.Time

	// CloudID is the resolved Jira Cloud tenant identifier. Empty until
	// post-login enrichment succeeds; login validity never depends on it.
	CloudID string

	// Remember-me extends the session horizon past the native expiry.
	RememberMeEnabled bool
	ExtendedExpiresAt *time.Time

	// Refresh telemetry, maintained by the scheduler.
	LastRefreshedAt     *time.Time
	RefreshAttemptCount int
	RefreshSuccessCount int
	RefreshFailureCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveExpiry is the expiry timestamp validity checks use: the extended
// horizon when remember-me is on, the native expiry otherwise.
func (t TokenRecord) EffectiveExpiry() time.Time {
	if t.RememberMeEnabled && t.ExtendedExpiresAt != nil {
		return *t.ExtendedExpiresAt
	}
	return t.ExpiresAt
}

// Valid reports whether the record is still usable at the given instant.
func (t TokenRecord) Valid(now time.Time) bool {
	return now.Before(t.EffectiveExpiry())
}

// TokenStatus is the read-only projection returned by the status endpoint.
// It carries no secrets.
type TokenStatus struct {
	Valid             bool       `json:"valid"`
	ExpiresInSeconds  int64      `json:"expires_in_seconds"`
	ExpiresAt         time.Time  `json:"expires_at"`
	CloudID           string     `json:"cloud_id,omitempty"`
	RememberMeEnabled bool       `json:"remember_me_enabled"`
	ExtendedExpiresAt *time.Time `json:"extended_expires_at,omitempty"`
	LastRefreshedAt   *time.Time `json:"last_refreshed_at,omitempty"`
	RefreshSuccesses  int        `json:"refresh_success_count"`
	RefreshFailures   int        `json:"refresh_failure_count"`
}

// StatusOf projects a record into its public status at the given instant.
func StatusOf(t TokenRecord, now time.Time) TokenStatus {
	expiry := t.EffectiveExpiry()

	remaining := int64(expiry.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	return TokenStatus{
		Valid:             t.Valid(now),
		ExpiresInSeconds:  remaining,
		ExpiresAt:         expiry,
		CloudID:           t.CloudID,
		RememberMeEnabled: t.RememberMeEnabled,
		ExtendedExpiresAt: t.ExtendedExpiresAt,
		LastRefreshedAt:   t.LastRefreshedAt,
		RefreshSuccesses:  t.RefreshSuccessCount,
		RefreshFailures:   t.RefreshFailureCount,
	}
}
