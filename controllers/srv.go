// controllers/srv.go
package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_asset_tracker/app"
	"Gin_postgres_redis_asset_tracker/auth"
	"Gin_postgres_redis_asset_tracker/config"
	"Gin_postgres_redis_asset_tracker/db"
	"Gin_postgres_redis_asset_tracker/session"
	"Gin_postgres_redis_asset_tracker/storage"

	"github.com/gin-gonic/gin"
)

type Srv struct {
	Repo      *db.Repo
	AppSess   *session.AppSessionStore
	AllowList *auth.AllowList
	Passkey   *auth.Passkey
	Tokens    *auth.TokenIssuer
	Photos    storage.PhotoStore
	Cfg       config.Config
	Now       func() time.Time
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	return &Srv{
		Repo:      repo,
		AppSess:   session.NewAppSessionStore(a.RDB, a.Config.AppSessionTTL),
		AllowList: auth.NewAllowList(repo, a.Config.AdminUsernames),
		Passkey:   auth.NewPasskey(a.WA, repo, session.NewStore(a.RDB, a.Config.SessionTTL)),
		Tokens:    auth.NewTokenIssuer(a.Config.JWTSecret, a.Config.JWTExpiry),
		Photos:    storage.NewDiskStore(a.Config.UploadDir, a.Config.UploadPrefix),
		Cfg:       a.Config,
		Now:       time.Now,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：记录登录 + 创建会话 + 签发 token
func (s *Srv) issueSession(ctx context.Context, c *gin.Context, id *auth.Identity) (app.H, error) {
	_ = s.Repo.TouchUserLogin(ctx, id.UserID) // 不阻塞

	sid, err := s.AppSess.Create(ctx, id.UserID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		return nil, err
	}
	s.setAppCookie(c.Writer, sid, s.AppSess.TTL())

	token, exp, err := s.Tokens.Issue(*id, sid)
	if err != nil {
		return nil, err
	}
	return app.H{"ok": true, "token": token, "expiresAt": exp, "user": id}, nil
}
