package app

import (
	"context"
	"net/http"
	"strings"

	"Gin_postgres_redis_asset_tracker/auth"
	"Gin_postgres_redis_asset_tracker/models"
	"Gin_postgres_redis_asset_tracker/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "asset_session"

const actorKey = "actor"

// UserFinder confirms the user behind a session or token still exists.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// BearerToken returns the Authorization bearer token, "" when absent.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// ResolveActor 从会话 Cookie 或 Bearer JWT 解析当前用户；解析失败不拦截，交给 AuthRequired
// JWT 还要求其绑定的会话仍存在：登出或删除用户后 token 立即失效
func ResolveActor(appSess *session.AppSessionStore, users UserFinder, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var userID string
		if tok := BearerToken(c); tok != "" {
			id, sid, err := tokens.Parse(tok)
			if err == nil {
				if as, err := appSess.Get(ctx, sid); err == nil && as.UserID == id.UserID {
					userID = id.UserID
				}
			}
		} else if ck, err := c.Request.Cookie(AppSessionCookie); err == nil && ck.Value != "" {
			as, err := appSess.Get(ctx, ck.Value)
			if err == nil {
				userID = as.UserID
			}
		}
		if userID == "" {
			c.Next()
			return
		}

		// 这里确认用户仍存在，并以数据库中的 isAdmin 为准
		u, err := users.FindUserByID(ctx, userID)
		if err != nil {
			c.Next()
			return
		}
		c.Set(actorKey, models.Actor{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
		c.Next()
	}
}

// ActorFrom returns the request's actor, the zero Actor when nobody is logged in.
func ActorFrom(c *gin.Context) models.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}
	}
	a, _ := v.(models.Actor)
	return a
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		a := ActorFrom(c)
		if !a.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !a.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
