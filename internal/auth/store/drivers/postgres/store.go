// Package postgres is the shared-deployment store driver. Unlike the
// embedded sqlite driver it applies its schema idempotently at startup
// instead of carrying a migration history.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/relayworks/jirabot/internal/auth/store"
	"github.com/relayworks/jirabot/pkg/cryptox"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

// NewStore connects to postgres at dsn and verifies the connection.
func NewStore(ctx context.Context, dsn string, sealer *cryptox.Sealer) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, sealer: sealer}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tokens() store.Tokens {
	return &tokensRepo{db: s.db, sealer: s.sealer}
}

// ApplyMigrations creates the schema if it does not exist yet.
func (s *Store) ApplyMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS token_records (
			user_id TEXT PRIMARY KEY,
			access_token_sealed TEXT NOT NULL,
			refresh_token_sealed TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			cloud_id TEXT NOT NULL DEFAULT '',
			remember_me_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			extended_expires_at TIMESTAMPTZ,
			last_refreshed_at TIMESTAMPTZ,
			refresh_attempt_count INTEGER NOT NULL DEFAULT 0,
			refresh_success_count INTEGER NOT NULL DEFAULT 0,
			refresh_failure_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_token_records_expires_at
			ON token_records (expires_at);
	`)
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
