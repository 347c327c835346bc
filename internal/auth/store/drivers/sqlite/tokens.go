package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/relayworks/jirabot/internal/auth/domain"
	"github.com/relayworks/jirabot/internal/auth/store"
	"github.com/relayworks/jirabot/pkg/cryptox"
)

type tokensRepo struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

const tokenColumns = `user_id, access_token_sealed, refresh_token_sealed, expires_at,
	cloud_id, remember_me_enabled, extended_expires_at, last_refreshed_at,
	refresh_attempt_count, refresh_success_count, refresh_failure_count,
	created_at, updated_at`

func (r *tokensRepo) Get(ctx context.Context, userID string) (domain.TokenRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM token_records WHERE user_id = ?`, userID)

	rec, err := r.scan(row)
	if err != nil {
		return domain.TokenRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *tokensRepo) Put(ctx context.Context, rec domain.TokenRecord) error {
	accessSealed, err := r.sealer.SealString(rec.AccessToken)
	if err != nil {
		return err
	}
	refreshSealed, err := r.sealer.SealString(rec.RefreshToken)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO token_records (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token_sealed = excluded.access_token_sealed,
			refresh_token_sealed = excluded.refresh_token_sealed,
			expires_at = excluded.expires_at,
			cloud_id = excluded.cloud_id,
			remember_me_enabled = excluded.remember_me_enabled,
			extended_expires_at = excluded.extended_expires_at,
			last_refreshed_at = excluded.last_refreshed_at,
			refresh_attempt_count = excluded.refresh_attempt_count,
			refresh_success_count = excluded.refresh_success_count,
			refresh_failure_count = excluded.refresh_failure_count,
			updated_at = excluded.updated_at`,
		rec.UserID, accessSealed, refreshSealed, rec.ExpiresAt.UTC(),
		rec.CloudID, rec.RememberMeEnabled, mapOptionalTime(rec.ExtendedExpiresAt),
		mapOptionalTime(rec.LastRefreshedAt),
		rec.RefreshAttemptCount, rec.RefreshSuccessCount, rec.RefreshFailureCount,
		createdAt, now,
	)
	return err
}

func (r *tokensRepo) Delete(ctx context.Context, userID string) error {
	// Idempotent: deleting an absent record is not an error.
	_, err := r.db.ExecContext(ctx, `DELETE FROM token_records WHERE user_id = ?`, userID)
	return err
}

func (r *tokensRepo) ListAll(ctx context.Context) ([]domain.TokenRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM token_records ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TokenRecord
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			if errors.Is(err, store.ErrDecrypt) {
				// Keep the scheduler moving; the record surfaces with
				// empty secrets and fails validity checks downstream.
				out = append(out, rec)
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scan reads one row and opens the sealed secrets. A decryption failure
// returns the record shell alongside store.ErrDecrypt so callers can decide
// whether to skip or surface it.
func (r *tokensRepo) scan(row rowScanner) (domain.TokenRecord, error) {
	var (
		rec           domain.TokenRecord
		accessSealed  string
		refreshSealed string
		extendedAt    sql.NullTime
		refreshedAt   sql.NullTime
	)

	err := row.Scan(
		&rec.UserID, &accessSealed, &refreshSealed, &rec.ExpiresAt,
		&rec.CloudID, &rec.RememberMeEnabled, &extendedAt, &refreshedAt,
		&rec.RefreshAttemptCount, &rec.RefreshSuccessCount, &rec.RefreshFailureCount,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	rec.ExtendedExpiresAt = mapNullTimePtr(extendedAt)
	rec.LastRefreshedAt = mapNullTimePtr(refreshedAt)

	rec.AccessToken, err = r.sealer.OpenString(accessSealed)
	if err != nil {
		return rec, store.ErrDecrypt
	}
	rec.RefreshToken, err = r.sealer.OpenString(refreshSealed)
	if err != nil {
		return rec, store.ErrDecrypt
	}

	return rec, nil
}
