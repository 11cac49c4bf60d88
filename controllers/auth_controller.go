package controllers

import (
	"net/http"
	"strings"

	"Gin_postgres_redis_asset_tracker/app"
	"Gin_postgres_redis_asset_tracker/auth"

	"github.com/gin-gonic/gin"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /auth/login {username}
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username" form:"username" binding:"required"`
	}
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username is required"})
		return
	}
	ctx := c.Request.Context()
	id, err := ac.AllowList.Authenticate(ctx, auth.Credentials{Username: in.Username})
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := ac.issueSession(ctx, c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// POST /auth/logout：删 Redis 会话（Cookie 的和 token 绑定的），Cookie 置空
func (ac *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.AppSess.Delete(ctx, ck.Value)
	}
	if tok := app.BearerToken(c); tok != "" {
		if _, sid, err := ac.Tokens.Parse(tok); err == nil {
			_ = ac.AppSess.Delete(ctx, sid)
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(ac.Cfg.WebOrigin, "https://"),
	})
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, app.H{"user": app.ActorFrom(c)})
}
