package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated failed logins for one username.
type LoginLimiter interface {
	Allow(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// NewLoginLimiter returns a Redis-backed limiter, or a no-op one when the
// client is missing or maxAttempts is not positive.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) LoginLimiter {
	if client == nil || maxAttempts <= 0 || window <= 0 {
		return noopLimiter{}
	}
	return &redisLoginLimiter{client: client, max: maxAttempts, window: window}
}

type redisLoginLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func (l *redisLoginLimiter) Allow(ctx context.Context, username string) (bool, error) {
	count, err := l.client.Get(ctx, failureKey(username)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return count < l.max, nil
}

func (l *redisLoginLimiter) RecordFailure(ctx context.Context, username string) error {
	key := failureKey(username)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

func (l *redisLoginLimiter) Reset(ctx context.Context, username string) error {
	return l.client.Del(ctx, failureKey(username)).Err()
}

func failureKey(username string) string {
	return "login_failures:" + strings.ToLower(strings.TrimSpace(username))
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

func (noopLimiter) RecordFailure(context.Context, string) error { return nil }

func (noopLimiter) Reset(context.Context, string) error { return nil }
