// Package pending tracks in-flight authorization attempts between issuing an
// authorization URL and receiving the provider callback. Entries are one-shot
// and short-lived: a consumed or expired nonce is never accepted again.
//
// With REDIS_URL configured the entries live in Redis so several bridge
// instances can share them; otherwise an in-memory map suffices for the
// single-node default.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

// ErrNotFound reports an unknown, already consumed, or expired nonce.
var ErrNotFound = errors.New("pending: login not found")

// Store holds pending logins keyed by nonce.
type Store interface {
	Put(ctx context.Context, login domain.PendingLogin) error

	// Consume removes and returns the login for nonce. The removal is
	// atomic: two concurrent callbacks with the same state cannot both
	// succeed.
	Consume(ctx context.Context, nonce string) (domain.PendingLogin, error)

	Close() error
}

// New returns a Redis-backed store when redisURL is non-empty, otherwise an
// in-memory one.
func New(redisURL string) (Store, error) {
	if redisURL == "" {
		return newMemoryStore(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisStore{client: client}, nil
}

// memoryStore

type memoryStore struct {
	mu     sync.Mutex
	logins map[string]domain.PendingLogin
}

func newMemoryStore() *memoryStore {
	return &memoryStore{logins: make(map[string]domain.PendingLogin)}
}

func (s *memoryStore) Put(_ context.Context, login domain.PendingLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Opportunistic sweep; the map only ever holds in-flight logins.
	now := time.Now()
	for nonce, l := range s.logins {
		if now.After(l.ExpiresAt) {
			delete(s.logins, nonce)
		}
	}

	s.logins[login.Nonce] = login
	return nil
}

func (s *memoryStore) Consume(_ context.Context, nonce string) (domain.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	login, ok := s.logins[nonce]
	if !ok {
		return domain.PendingLogin{}, ErrNotFound
	}
	delete(s.logins, nonce)

	if time.Now().After(login.ExpiresAt) {
		return domain.PendingLogin{}, ErrNotFound
	}
	return login, nil
}

func (s *memoryStore) Close() error { return nil }

// redisStore

type redisStore struct {
	client *redis.Client
}

const redisKeyPrefix = "jirabot:pending_login:"

func (s *redisStore) Put(ctx context.Context, login domain.PendingLogin) error {
	payload, err := json.Marshal(login)
	if err != nil {
		return err
	}
	ttl := time.Until(login.ExpiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to store
	}
	return s.client.Set(ctx, redisKeyPrefix+login.Nonce, payload, ttl).Err()
}

func (s *redisStore) Consume(ctx context.Context, nonce string) (domain.PendingLogin, error) {
	val, err := s.client.GetDel(ctx, redisKeyPrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PendingLogin{}, ErrNotFound
	}
	if err != nil {
		return domain.PendingLogin{}, err
	}

	var login domain.PendingLogin
	if err := json.Unmarshal([]byte(val), &login); err != nil {
		return domain.PendingLogin{}, err
	}
	if time.Now().After(login.ExpiresAt) {
		return domain.PendingLogin{}, ErrNotFound
	}
	return login, nil
}

func (s *redisStore) Close() error { return s.client.Close() }
