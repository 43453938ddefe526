package imagestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps image bytes in Redis under "<prefix><name>". The client is
// owned by the caller.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "img/" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL expires stored images after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: Namespace + "/"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureNamespace checks the connection; Redis needs no schema.
func (s *RedisStore) EnsureNamespace(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, id, format string, data []byte) (string, error) {
	name, err := FileName(id, format)
	if err != nil {
		return "", err
	}
	key := s.prefix + name
	ok, err := s.client.SetNX(ctx, key, data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrExists, name)
	}
	return Namespace + "/" + name, nil
}

func (s *RedisStore) Get(ctx context.Context, ref string) ([]byte, error) {
	name, err := NameOf(ref)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}
