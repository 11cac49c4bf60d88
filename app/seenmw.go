// app/seenmw.go
package app

import (
	"context"
	"time"

	"Gin_postgres_redis_asset_tracker/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type SeenToucher interface {
	TouchUserSeen(ctx context.Context, userID string) error
}

// TouchLastSeen 每个用户每 throttle 最多写一次 last_seen_at
func TouchLastSeen(users SeenToucher, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := ActorFrom(c)
		if !a.Authenticated() {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		if ok, _ := session.Once(ctx, rdb, "asset:lastseen:"+a.UserID, throttle); ok {
			_ = users.TouchUserSeen(ctx, a.UserID) // 忽略错误，不阻塞请求
		}
		c.Next()
	}
}
