package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/procurement-auth/internal/domain"
)

// ErrMiss is returned when no authority entry exists for a subject, or when
// the cache cannot answer. Callers treat both the same way: fail closed.
var ErrMiss = errors.New("authority cache miss")

// ErrUnavailable wraps ErrMiss for connectivity and timeout failures so the
// boundary can log the operational signal while still rejecting the request.
var ErrUnavailable = errors.New("authority cache unavailable")

const keyPrefix = "authorities:"

// AuthorityCache holds each subject's current authority set.
type AuthorityCache interface {
	Put(ctx context.Context, subject string, authorities []string) error
	Get(ctx context.Context, subject string) ([]string, error)
	Delete(ctx context.Context, subject string) error
}

// RedisAuthorityCache is the shared low-latency implementation. Every call is
// bounded by a per-operation timeout.
type RedisAuthorityCache struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisAuthorityCache wires the cache over an existing client.
func NewRedisAuthorityCache(client *redis.Client, ttl, timeout time.Duration, logger *zap.Logger) *RedisAuthorityCache {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &RedisAuthorityCache{client: client, ttl: ttl, timeout: timeout, logger: logger}
}

// Put overwrites the subject's entry and resets its TTL.
func (c *RedisAuthorityCache) Put(ctx context.Context, subject string, authorities []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, keyPrefix+subject, domain.JoinAuthorities(authorities), c.ttl).Err(); err != nil {
		c.logger.Warn("authority cache put failed", zap.String("subject", subject), zap.Error(err))
		return errors.Join(ErrUnavailable, ErrMiss)
	}
	return nil
}

// Get resolves the subject's current authorities. A connectivity failure or
// timeout is indistinguishable from a miss for the caller: both deny.
func (c *RedisAuthorityCache) Get(ctx context.Context, subject string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.client.Get(ctx, keyPrefix+subject).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		c.logger.Warn("authority cache unreachable", zap.String("subject", subject), zap.Error(err))
		return nil, errors.Join(ErrUnavailable, ErrMiss)
	}
	return domain.SplitAuthorities(val), nil
}

// Delete removes the subject's entry.
func (c *RedisAuthorityCache) Delete(ctx context.Context, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, keyPrefix+subject).Err(); err != nil {
		c.logger.Warn("authority cache delete failed", zap.String("subject", subject), zap.Error(err))
		return errors.Join(ErrUnavailable, ErrMiss)
	}
	return nil
}
