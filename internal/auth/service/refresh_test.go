package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

func newRefreshFixture(t *testing.T) (*RefreshScheduler, *memTokens, *fakeProvider, *recorder) {
	t.Helper()

	tokens := newMemTokens()
	prov := &fakeProvider{
		refreshTok: domain.ProviderToken{
			AccessToken:  "at-new",
			RefreshToken: "rt-new",
			ExpiresIn:    time.Hour,
		},
	}
	rec := &recorder{}

	sched := NewRefreshScheduler(tokens, prov, rec, NewUserLocks(), testLogger(),
		time.Minute, 5*time.Minute)
	return sched, tokens, prov, rec
}

func TestSweepRefreshesExpiringToken(t *testing.T) {
	sched, tokens, prov, rec := newRefreshFixture(t)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:       "user-1",
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	}))

	sched.Sweep(ctx)

	assert.Equal(t, []string{"rt-old"}, prov.refreshed)

	stored, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "at-new", stored.AccessToken)
	assert.Equal(t, "rt-new", stored.RefreshToken)
	assert.Equal(t, 1, stored.RefreshAttemptCount)
	assert.Equal(t, 1, stored.RefreshSuccessCount)
	assert.NotNil(t, stored.LastRefreshedAt)

	assert.Equal(t, []domain.EventKind{domain.EventTokenRefreshed}, rec.kinds())
}

func TestSweepSkipsFreshToken(t *testing.T) {
	sched, tokens, prov, _ := newRefreshFixture(t)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:       "user-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	sched.Sweep(ctx)
	assert.Empty(t, prov.refreshed)
}

func TestSweepSkipsTokenWithoutRefreshToken(t *testing.T) {
	sched, tokens, prov, _ := newRefreshFixture(t)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	sched.Sweep(ctx)
	assert.Empty(t, prov.refreshed)
}

func TestSweepSkipsExpiredSession(t *testing.T) {
	sched, tokens, prov, _ := newRefreshFixture(t)
	ctx := context.Background()

	// Native expiry passed and no extended horizon: the session is over.
	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:       "user-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	sched.Sweep(ctx)
	assert.Empty(t, prov.refreshed)
}

func TestSweepRefreshesPastNativeExpiryWithRememberMe(t *testing.T) {
	sched, tokens, prov, _ := newRefreshFixture(t)
	ctx := context.Background()

	extended := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:            "user-1",
		RefreshToken:      "rt-1",
		ExpiresAt:         time.Now().Add(-time.Minute),
		RememberMeEnabled: true,
		ExtendedExpiresAt: &extended,
	}))

	sched.Sweep(ctx)

	assert.Equal(t, []string{"rt-1"}, prov.refreshed)
	stored, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
	// The original extended horizon is further out, so it is untouched.
	assert.Equal(t, extended.Unix(), stored.ExtendedExpiresAt.Unix())
}

func TestSweepRecordsFailure(t *testing.T) {
	sched, tokens, prov, rec := newRefreshFixture(t)
	prov.refreshErr = fmt.Errorf("invalid_grant")
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:       "user-1",
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	}))

	sched.Sweep(ctx)

	stored, err := tokens.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "at-old", stored.AccessToken)
	assert.Equal(t, "rt-old", stored.RefreshToken)
	assert.Equal(t, 1, stored.RefreshAttemptCount)
	assert.Equal(t, 1, stored.RefreshFailureCount)
	assert.Zero(t, stored.RefreshSuccessCount)

	assert.Equal(t, []domain.EventKind{domain.EventRefreshFailed}, rec.kinds())
}

func TestSweepSkipsUndecryptableRecords(t *testing.T) {
	sched, tokens, prov, _ := newRefreshFixture(t)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:       "user-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))
	tokens.undecryptable["user-1"] = true

	sched.Sweep(ctx)
	assert.Empty(t, prov.refreshed)
}

func TestRefreshDoesNotResurrectDeletedRecord(t *testing.T) {
	sched, tokens, prov, _ := newRefreshFixture(t)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, domain.TokenRecord{
		UserID:       "user-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	}))

	// Simulate a logout racing the sweep: the record is gone by the time
	// refreshOne re-reads it under the lock.
	require.NoError(t, tokens.Delete(ctx, "user-1"))
	sched.refreshOne(ctx, "user-1")

	assert.Empty(t, prov.refreshed)
	_, err := tokens.Get(ctx, "user-1")
	assert.Error(t, err)
}

func TestSchedulerStartOnce(t *testing.T) {
	sched, _, _, _ := newRefreshFixture(t)

	sched.Start()
	sched.Start() // logged no-op, no second worker
	sched.Stop()
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	sched, _, _, _ := newRefreshFixture(t)
	sched.Stop()
}

func TestUserLocksSerialize(t *testing.T) {
	locks := NewUserLocks()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("user-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, counter)

	// All references released, the map must be empty again.
	locks.mu.Lock()
	assert.Empty(t, locks.locks)
	locks.mu.Unlock()
}

func TestUserLocksIndependentUsers(t *testing.T) {
	locks := NewUserLocks()

	unlockA := locks.Lock("user-a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("user-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for user-b blocked behind user-a")
	}
	unlockA()
}
