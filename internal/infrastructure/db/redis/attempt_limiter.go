package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter is a fixed-window counter: at most max attempts per key
// within each window.
// Key format: rl:<key>
type AttemptLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

// NewAttemptLimiter returns a limiter allowing max attempts per window.
func NewAttemptLimiter(client *redis.Client, max int, window time.Duration) *AttemptLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &AttemptLimiter{client: client, max: int64(max), window: window}
}

// Allow counts one attempt for key and reports whether it is within budget.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "rl:" + key

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("attempt limiter: %w", err)
	}
	// The first attempt opens the window.
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("attempt limiter: %w", err)
		}
	}
	return n <= l.max, nil
}
