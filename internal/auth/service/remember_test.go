package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

func newRememberFixture(t *testing.T) (*RememberService, *memTokens, *recorder) {
	t.Helper()
	tokens := newMemTokens()
	rec := &recorder{}
	svc := NewRememberService(tokens, rec, NewUserLocks(), testLogger(), 0)
	return svc, tokens, rec
}

func seedToken(t *testing.T, tokens *memTokens, userID string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, tokens.Put(context.Background(), domain.TokenRecord{
		UserID:       userID,
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    expiresAt,
	}))
}

func TestEnableDefaultDuration(t *testing.T) {
	svc, tokens, rec := newRememberFixture(t)
	ctx := context.Background()
	seedToken(t, tokens, "user-1", time.Now().Add(time.Hour))

	status, err := svc.Enable(ctx, "user-1", 0)
	require.NoError(t, err)

	assert.True(t, status.RememberMeEnabled)
	require.NotNil(t, status.ExtendedExpiresAt)
	assert.WithinDuration(t, time.Now().Add(defaultRememberDuration),
		*status.ExtendedExpiresAt, time.Minute)

	assert.Equal(t, []domain.EventKind{domain.EventRememberMeChanged}, rec.kinds())
}

func TestEnableClampsToCeiling(t *testing.T) {
	svc, tokens, _ := newRememberFixture(t)
	seedToken(t, tokens, "user-1", time.Now().Add(time.Hour))

	status, err := svc.Enable(context.Background(), "user-1", 365*24*time.Hour)
	require.NoError(t, err)

	require.NotNil(t, status.ExtendedExpiresAt)
	assert.WithinDuration(t, time.Now().Add(maxRememberDuration),
		*status.ExtendedExpiresAt, time.Minute)
}

func TestEnableNeverShortensNativeExpiry(t *testing.T) {
	svc, tokens, _ := newRememberFixture(t)
	nativeExpiry := time.Now().Add(48 * time.Hour)
	seedToken(t, tokens, "user-1", nativeExpiry)

	status, err := svc.Enable(context.Background(), "user-1", time.Hour)
	require.NoError(t, err)

	require.NotNil(t, status.ExtendedExpiresAt)
	assert.Equal(t, nativeExpiry.Unix(), status.ExtendedExpiresAt.Unix())
}

func TestEnableExtendsEffectiveExpiry(t *testing.T) {
	svc, tokens, _ := newRememberFixture(t)
	ctx := context.Background()
	seedToken(t, tokens, "user-1", time.Now().Add(time.Hour))

	_, err := svc.Enable(ctx, "user-1", 7*24*time.Hour)
	require.NoError(t, err)

	stored, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.EffectiveExpiry().After(stored.ExpiresAt))
}

func TestDisableDropsExtendedHorizon(t *testing.T) {
	svc, tokens, _ := newRememberFixture(t)
	ctx := context.Background()
	nativeExpiry := time.Now().Add(time.Hour)
	seedToken(t, tokens, "user-1", nativeExpiry)

	_, err := svc.Enable(ctx, "user-1", 7*24*time.Hour)
	require.NoError(t, err)

	status, err := svc.Disable(ctx, "user-1")
	require.NoError(t, err)

	assert.False(t, status.RememberMeEnabled)
	assert.Nil(t, status.ExtendedExpiresAt)

	stored, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, nativeExpiry.Unix(), stored.EffectiveExpiry().Unix())
}

func TestRememberRequiresAuthentication(t *testing.T) {
	svc, tokens, _ := newRememberFixture(t)
	ctx := context.Background()

	_, err := svc.Enable(ctx, "nobody", 0)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Disable(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Status(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	seedToken(t, tokens, "user-1", time.Now().Add(time.Hour))
	tokens.undecryptable["user-1"] = true
	_, err = svc.Enable(ctx, "user-1", 0)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRememberStatusIsReadOnly(t *testing.T) {
	svc, tokens, rec := newRememberFixture(t)
	ctx := context.Background()
	seedToken(t, tokens, "user-1", time.Now().Add(time.Hour))

	before, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.Status(ctx, "user-1")
	require.NoError(t, err)

	after, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, rec.kinds())
}
