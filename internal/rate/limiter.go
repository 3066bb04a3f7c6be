package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle tuning parameters.
type Config struct {
	// MaxAttempts is the number of failed logins allowed per window.
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
	// Prefix namespaces the counter keys. Empty means "throttle".
	Prefix string
}

// Limiter counts failed logins per account and, optionally, per client address.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "throttle"
	}
	return &Limiter{redis: redisClient, config: cfg}
}

// Check returns [ErrRateLimited] when email or ip has used up its budget.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// Fail records a failed login.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	if err := l.redis.Del(ctx, l.keys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RetryAfter returns how long the account counter of email has left in its window.
func (l *Limiter) RetryAfter(ctx context.Context, email string) time.Duration {
	ttl, err := l.redis.TTL(ctx, l.accountKey(email)).Result()
	if err != nil || ttl < 0 {
		return l.config.Cooldown
	}
	return ttl
}

func (l *Limiter) accountKey(email string) string {
	return l.config.Prefix + ":login:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.accountKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.config.Prefix+":login-ip:"+ip)
	}
	return keys
}
