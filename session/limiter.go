package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter charges one login attempt and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context) (bool, error)
}

// WindowLimiter is a global fixed window: the first attempt after the window
// has elapsed restarts it at now with a count of zero, then the attempt is
// counted. Attempts beyond the maximum inside one window are refused.
type WindowLimiter struct {
	window time.Duration
	max    int64
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	count int64
}

func NewWindowLimiter(window time.Duration, maxAttempts int64, now func() time.Time) *WindowLimiter {
	if now == nil {
		now = time.Now
	}
	return &WindowLimiter{window: window, max: maxAttempts, now: now}
}

func (l *WindowLimiter) Allow(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.start.IsZero() || now.Sub(l.start) >= l.window {
		l.start = now
		l.count = 0
	}
	l.count++
	return l.count <= l.max, nil
}

// RedisLimiter keeps the window counter in Redis so it survives a process
// restart. The key expires with the window.
type RedisLimiter struct {
	Redis  *redis.Client
	Key    string
	Window time.Duration
	Max    int64
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration, maxAttempts int64) *RedisLimiter {
	return &RedisLimiter{
		Redis:  rdb,
		Key:    "rl:auth:login",
		Window: window,
		Max:    maxAttempts,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context) (bool, error) {
	// The key is created with its TTL before counting, and a counter found
	// without one gets it back, so the window always ends.
	pipe := l.Redis.TxPipeline()
	pipe.SetNX(ctx, l.Key, 0, l.Window)
	incr := pipe.Incr(ctx, l.Key)
	ttl := pipe.TTL(ctx, l.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("incrementing login counter: %w", err)
	}

	if ttl.Val() < 0 {
		if err := l.Redis.Expire(ctx, l.Key, l.Window).Err(); err != nil {
			return false, fmt.Errorf("setting login window: %w", err)
		}
	}
	return incr.Val() <= l.Max, nil
}
