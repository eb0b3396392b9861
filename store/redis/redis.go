// Package redis provides a SessionStore backed by Redis, for deployments
// where pipeline sessions must survive process restarts or be shared
// between instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"geoaval/store"
)

// RedisSessionStore implements store.SessionStore using Redis.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.SessionStore = (*RedisSessionStore)(nil)

// RedisOptions configuration for the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "geoaval:"
	TTL      time.Duration // Expiration for sessions, default 0 (no expiration)
}

// NewRedisSessionStore creates a new Redis session store.
func NewRedisSessionStore(opts RedisOptions) *RedisSessionStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "geoaval:"
	}

	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

// NewRedisSessionStoreWithClient wraps an existing client, used in tests.
func NewRedisSessionStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "geoaval:"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSessionStore) sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s", s.prefix, id)
}

// Save stores a session record. The optimistic version check runs inside a
// WATCH transaction so concurrent writers on the same id are serialized.
func (s *RedisSessionStore) Save(ctx context.Context, sess *store.Session) error {
	key := s.sessionKey(sess.ID)

	record := *sess
	record.UpdatedAt = time.Now()

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			if sess.Version != 1 {
				return store.ErrVersionConflict
			}
		case err != nil:
			return fmt.Errorf("failed to read current session: %w", err)
		default:
			var existing store.Session
			if err := json.Unmarshal(current, &existing); err != nil {
				return fmt.Errorf("failed to unmarshal current session: %w", err)
			}
			if existing.Version != sess.Version-1 {
				return store.ErrVersionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The key changed underneath us, which is a lost race by definition.
		return store.ErrVersionConflict
	}
	return err
}

// Load retrieves a session record by id.
func (s *RedisSessionStore) Load(ctx context.Context, id string) (*store.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}

	var sess store.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Delete removes a session record.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
