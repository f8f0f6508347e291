// Package revocation tracks access tokens that were logged out before they expired.
//
// Tokens are keyed by the SHA-256 of their compact form, so the raw bearer
// token never reaches the store. Entries live only until the token would have
// expired anyway.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers revoked tokens until their expiry.
type Store interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

const keyPrefix = "revoked:"

// TokenKey returns the storage key for a token.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// kv is the part of the go-redis client the store uses.
type kv interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore shares revocations between server instances.
type RedisStore struct {
	client kv
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if token == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, TokenKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	err := s.client.Get(ctx, TokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

// MemoryStore is a single-process Store used when no Redis URL is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if token == "" || !expiresAt.After(now) {
		return nil
	}
	m.entries[TokenKey(token)] = expiresAt
	m.purge(now)
	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[TokenKey(token)]
	if !ok {
		return false, nil
	}
	if !exp.After(m.now()) {
		delete(m.entries, TokenKey(token))
		return false, nil
	}
	return true, nil
}

// purge drops expired entries. Callers hold mu.
func (m *MemoryStore) purge(now time.Time) {
	for k, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, k)
		}
	}
}
