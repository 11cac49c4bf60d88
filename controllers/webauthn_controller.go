// controllers/webauthn_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"Gin_postgres_redis_asset_tracker/app"
	"Gin_postgres_redis_asset_tracker/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
)

// ===== 登录 =====

type loginBeginReq struct {
	Username string `json:"username"`
}
type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

// POST /auth/passkey/login/begin；username 为空时走无用户名（discoverable）登录
func (ac *AuthController) BeginPasskeyLogin(c *gin.Context) {
	var req loginBeginReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "bad request"})
			return
		}
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	opts, sid, err := ac.Passkey.BeginLogin(ctx, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginBeginResp{Options: opts, SessionID: sid})
}

// POST /auth/passkey/login/finish?sessionId=&username=
func (ac *AuthController) FinishPasskeyLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing sessionId"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	id, err := ac.Passkey.Authenticate(ctx, auth.Credentials{
		Username:  c.Query("username"),
		SessionID: sid,
		Request:   c.Request,
	})
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

// ===== 添加新凭据（已登录） =====

func (ac *AuthController) BeginPasskeyRegistration(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	opts, err := ac.Passkey.BeginRegistration(ctx, app.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"opts": opts})
}

func (ac *AuthController) FinishPasskeyRegistration(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := ac.Passkey.FinishRegistration(ctx, app.ActorFrom(c), c.Request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
