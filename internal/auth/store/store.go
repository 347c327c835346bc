package store

import (
	"context"
	"errors"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

var (
	// ErrNotFound reports that no record exists for the requested key.
	ErrNotFound = errors.New("store: not found")

	// ErrDecrypt reports that a record exists but its sealed secrets could
	// not be opened (key rotation or corruption). Callers treat this the
	// same as ErrNotFound at the policy layer, but the distinction matters
	// for logging and cleanup.
	ErrDecrypt = errors.New("store: record undecryptable")
)

// Store is the root data access interface. Concrete drivers (sqlite for the
// embedded default, postgres for shared deployments) implement this.
type Store interface {
	Tokens() Tokens

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tokens is durable CRUD over TokenRecord, keyed by user ID. Secrets are
// sealed on write and opened on read by the driver; callers only ever see
// plaintext in memory.
type Tokens interface {
	// Get returns the record for userID, ErrNotFound if absent, or
	// ErrDecrypt if present but unreadable.
	Get(ctx context.Context, userID string) (domain.TokenRecord, error)

	// Put upserts the record wholesale. There is no partial merge at the
	// storage layer; callers read-modify-write under the user's lock.
	Put(ctx context.Context, rec domain.TokenRecord) error

	// Delete removes the record if present and no-ops otherwise.
	Delete(ctx context.Context, userID string) error

	// ListAll returns every stored record. Used only by the refresh
	// scheduler; records that fail to decrypt are returned with empty
	// secrets rather than aborting the listing.
	ListAll(ctx context.Context) ([]domain.TokenRecord, error)
}
