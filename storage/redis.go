package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores the session record in two keys under a prefix:
// "<prefix>:token" and "<prefix>:user". Named store records go to "<prefix>:store:<name>".
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. A positive ttl expires both keys, refreshed
// on every save; zero keeps them until destroyed.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "wms:session"
	}
	return &Redis{redis: client, prefix: prefix, ttl: ttl}
}

func (s *Redis) tokenKey() string { return s.prefix + ":token" }
func (s *Redis) userKey() string  { return s.prefix + ":user" }

func (s *Redis) stateKey(name string) string { return s.prefix + ":store:" + name }

func (s *Redis) Save(ctx context.Context, token string) error {
	return s.set(ctx, s.tokenKey(), token)
}

func (s *Redis) Get(ctx context.Context) (string, bool, error) {
	v, ok, err := s.get(ctx, s.tokenKey())
	return v, ok && v != "", err
}

func (s *Redis) Destroy(ctx context.Context) error {
	return s.del(ctx, s.tokenKey())
}

func (s *Redis) SaveUser(ctx context.Context, record []byte) error {
	return s.set(ctx, s.userKey(), string(record))
}

func (s *Redis) LoadUser(ctx context.Context) ([]byte, bool, error) {
	v, ok, err := s.get(ctx, s.userKey())
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (s *Redis) DestroyUser(ctx context.Context) error {
	return s.del(ctx, s.userKey())
}

func (s *Redis) SaveState(ctx context.Context, name string, record []byte) error {
	return s.set(ctx, s.stateKey(name), string(record))
}

func (s *Redis) LoadState(ctx context.Context, name string) ([]byte, bool, error) {
	v, ok, err := s.get(ctx, s.stateKey(name))
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (s *Redis) DestroyState(ctx context.Context, name string) error {
	return s.del(ctx, s.stateKey(name))
}

func (s *Redis) set(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Redis) get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *Redis) del(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
