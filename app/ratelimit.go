package app

import (
	"log/slog"
	"net/http"

	"Gin_postgres_redis_asset_tracker/session"

	"github.com/gin-gonic/gin"
)

// RateLimit 按客户端 IP 限流；Redis 出错时放行
func RateLimit(l *session.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			slog.Warn("rate limiter unavailable", "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"error": "too many login attempts"})
			return
		}
		c.Next()
	}
}
