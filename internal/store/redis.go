package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/domain"
)

// maxUpdateRetries bounds the optimistic WATCH retry loop. Contention on a
// single session is a handful of concurrent guesses at most.
const maxUpdateRetries = 8

// RedisStore keeps sessions in Redis so they survive process restarts and
// can be shared between replicas. Key expiry implements the session TTL;
// atomic updates use WATCH-guarded transactions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection
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

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Insert stores a new session with the configured TTL
func (s *RedisStore) Insert(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Get returns a snapshot of the session
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &session, nil
}

// Update applies fn inside a WATCH-guarded transaction. A concurrent write
// to the same key aborts the transaction and the read-modify-write retries
// against the fresh state, so no update is ever lost.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	key := sessionKey(id)
	var updated *domain.Session

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrSessionNotFound
			}
			return fmt.Errorf("getting session: %w", err)
		}

		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshaling session: %w", err)
		}

		if err := fn(&session); err != nil {
			return err
		}

		out, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			// Activity refreshes the TTL, matching last-activity expiry.
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &session
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("updating session %s: too many concurrent modifications", id)
}

// Delete removes the session
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Exists reports whether the session is present and unexpired
func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("checking session existence: %w", err)
	}
	return n > 0, nil
}

// Sweep scans for session keys whose idle time exceeds ttl. Redis key
// expiry already evicts most of them; the scan catches entries written
// before a TTL change. A failure on one key does not abort the rest.
func (s *RedisStore) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	swept := 0
	iter := s.client.Scan(ctx, 0, "session:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		idle, err := s.client.ObjectIdleTime(ctx, key).Result()
		if err != nil {
			s.logger.Warn("failed to read session idle time", "key", key, "error", err)
			continue
		}
		if idle <= ttl {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("failed to sweep session", "key", key, "error", err)
			continue
		}
		swept++
	}
	if err := iter.Err(); err != nil {
		return swept, fmt.Errorf("scanning sessions: %w", err)
	}
	return swept, nil
}
