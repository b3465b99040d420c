package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nirajbawa/match-pair-game/internal/config"
	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// RedisStore keeps identity blobs in Redis with a TTL, standing in for the
// per-tab session storage of a browser client.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s:identity", token)
}

// Get returns the identity for a session token, or nil when the key is
// absent or the stored blob no longer parses.
func (s *RedisStore) Get(ctx context.Context, token string) (*domain.Identity, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		s.logger.Warn("discarding malformed session blob", "token", token, "error", err)
		return nil, nil
	}
	return &identity, nil
}

// Put stores the identity blob under the session token.
func (s *RedisStore) Put(ctx context.Context, token string, identity domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Delete removes the session's identity blob.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
