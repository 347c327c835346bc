package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relayworks/jirabot/internal/auth/domain"
	"github.com/relayworks/jirabot/internal/auth/events"
	"github.com/relayworks/jirabot/internal/auth/store"
)

// memTokens is an in-memory store.Tokens for exercising the services without
// a database.
type memTokens struct {
	mu   sync.Mutex
	recs map[string]domain.TokenRecord

	// Keys listed here behave like sealed records that stopped decrypting.
	undecryptable map[string]bool
}

func newMemTokens() *memTokens {
	return &memTokens{
		recs:          make(map[string]domain.TokenRecord),
		undecryptable: make(map[string]bool),
	}
}

func (m *memTokens) Get(_ context.Context, userID string) (domain.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.undecryptable[userID] {
		return domain.TokenRecord{}, store.ErrDecrypt
	}
	rec, ok := m.recs[userID]
	if !ok {
		return domain.TokenRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (m *memTokens) Put(_ context.Context, rec domain.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.UserID] = rec
	return nil
}

func (m *memTokens) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, userID)
	delete(m.undecryptable, userID)
	return nil
}

func (m *memTokens) ListAll(_ context.Context) ([]domain.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TokenRecord, 0, len(m.recs))
	for id, rec := range m.recs {
		if m.undecryptable[id] {
			out = append(out, domain.TokenRecord{UserID: id})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// fakeProvider scripts the identity provider.
type fakeProvider struct {
	mu sync.Mutex

	exchangeTok domain.ProviderToken
	exchangeErr error
	exchanged   []string

	refreshTok domain.ProviderToken
	refreshErr error
	refreshed  []string

	cloudID    string
	cloudIDErr error
	// When set, ResolveCloudID blocks until the channel closes.
	cloudIDGate chan struct{}

	revokeErr error
	revoked   []string
}

func (f *fakeProvider) AuthorizeURL(state string) string {
	return "https://auth.example.com/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (domain.ProviderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	return f.exchangeTok, f.exchangeErr
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (domain.ProviderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, refreshToken)
	return f.refreshTok, f.refreshErr
}

func (f *fakeProvider) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeProvider) ResolveCloudID(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	gate := f.cloudIDGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cloudID, f.cloudIDErr
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Close() error { return nil }

func (r *recorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

var _ events.Publisher = (*recorder)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fixedNow pins a service clock to a known instant.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
