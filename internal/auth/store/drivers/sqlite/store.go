package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/relayworks/jirabot/internal/auth/store"
	"github.com/relayworks/jirabot/pkg/cryptox"
	_ "modernc.org/sqlite"
)

// Store is the embedded sqlite driver. It is the default for single-node
// deployments; the postgres driver covers shared ones.
type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	dsn    string
}

// NewStore opens the sqlite database at dsn. The sealer is applied to token
// secrets at this boundary so nothing above the store ever handles sealed
// bytes.
func NewStore(dsn string, sealer *cryptox.Sealer) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer; sqlite serializes writes anyway and this avoids
	// SQLITE_BUSY churn under concurrent refresh/logoff traffic.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, sealer: sealer, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tokens() store.Tokens {
	return &tokensRepo{db: s.db, sealer: s.sealer}
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
