package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_asset_tracker/app"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// DELETE /api/users/:id；其管理的资产保留，admin_id 置空
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	// 不允许删除自己，避免锁死
	if app.ActorFrom(c).UserID == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}

	ctx := c.Request.Context()
	if err := uc.Repo.DeleteUserByID(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	_ = uc.AppSess.RevokeAllForUser(ctx, id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}
