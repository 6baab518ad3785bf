package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore reads revocation marks from Redis. Writes normally come from the
// external auth authority; RevokeToken and RevokeSubject exist for tooling
// (cmd/seed) and operational use.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at addr and verifies the connection with a ping.
func NewRedisStore(addr, username, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Exists reports whether key is present in the store.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeToken marks a single credential revoked until ttl elapses (ttl should
// cover the token's remaining lifetime; entries may expire with the token).
func (s *RedisStore) RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, TokenKey(token), "1", ttl).Err()
}

// RevokeSubject marks every credential of a subject revoked until ttl elapses.
func (s *RedisStore) RevokeSubject(ctx context.Context, subjectID string, ttl time.Duration) error {
	return s.client.Set(ctx, SubjectKey(subjectID), "1", ttl).Err()
}

// Ping verifies store reachability. Used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
