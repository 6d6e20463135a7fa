package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amajai/contentloop-ai/internal/domain"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "contentloop:session:"

// RedisStore implements Repository backed by Redis. Each session is one JSON
// value without a TTL; expiry is decided by the sweeper so that the cleanup
// count stays observable. Feedback on a session is serialized inside one
// process only, so a key prefix must be owned by a single server.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithPrefix sets the key prefix for session keys.
func WithPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		prefix:    DefaultRedisPrefix,
		scanCount: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisFromURL dials Redis from a redis:// URL and verifies connectivity.
func NewRedisFromURL(ctx context.Context, rawURL string, opts ...RedisStoreOption) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Create inserts a new session.
func (s *RedisStore) Create(ctx context.Context, session *domain.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("create session %s: %w", session.ID, ErrAlreadyExists)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

// Update replaces an existing session. SET XX never creates a missing key.
func (s *RedisStore) Update(ctx context.Context, session *domain.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, s.key(session.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setxx: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInactiveBefore removes sessions idle since before cutoff. Each key is
// checked and deleted inside WATCH so a concurrent update wins over the sweep.
func (s *RedisStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var removed []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		deleted := false
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			session, err := decodeSession(data)
			if err != nil {
				return err
			}
			if !inactive(session, cutoff) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err == nil {
				deleted = true
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("sweep %s: %w", key, err)
		}
		if deleted {
			removed = append(removed, key[len(s.prefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}

// Counts returns total and inactive session counts.
func (s *RedisStore) Counts(ctx context.Context, cutoff time.Time) (int, int, error) {
	var total, expired int
	iter := s.client.Scan(ctx, 0, s.prefix+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, 0, fmt.Errorf("redis get: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return 0, 0, err
		}
		total++
		if inactive(session, cutoff) {
			expired++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, 0, fmt.Errorf("redis scan: %w", err)
	}
	return total, expired, nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeSession(session *domain.Session) ([]byte, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	out := session.Clone()
	if out.Feedback == nil {
		out.Feedback = []string{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}
