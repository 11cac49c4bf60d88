package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter 固定窗口计数：key 首次出现时设置过期
type Limiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: int64(limit), window: window, prefix: prefix}
}

// Allow counts one hit for id and reports whether it is still within the limit.
func (l *Limiter) Allow(ctx context.Context, id string) (bool, error) {
	k := l.prefix + ":" + id
	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= l.limit, nil
}

// Once reports true the first time id is seen within ttl.
func Once(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}
