package postgres

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
		`SELECT `+tokenColumns+` FROM token_records WHERE user_id = $1`, userID)

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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token_sealed = EXCLUDED.access_token_sealed,
			refresh_token_sealed = EXCLUDED.refresh_token_sealed,
			expires_at = EXCLUDED.expires_at,
			cloud_id = EXCLUDED.cloud_id,
			remember_me_enabled = EXCLUDED.remember_me_enabled,
			extended_expires_at = EXCLUDED.extended_expires_at,
			last_refreshed_at = EXCLUDED.last_refreshed_at,
			refresh_attempt_count = EXCLUDED.refresh_attempt_count,
			refresh_success_count = EXCLUDED.refresh_success_count,
			refresh_failure_count = EXCLUDED.refresh_failure_count,
			updated_at = EXCLUDED.updated_at`,
		rec.UserID, accessSealed, refreshSealed, rec.ExpiresAt.UTC(),
		rec.CloudID, rec.RememberMeEnabled, mapOptionalTime(rec.ExtendedExpiresAt),
		mapOptionalTime(rec.LastRefreshedAt),
		rec.RefreshAttemptCount, rec.RefreshSuccessCount, rec.RefreshFailureCount,
		createdAt, now,
	)
	return err
}

func (r *tokensRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM token_records WHERE user_id = $1`, userID)
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
