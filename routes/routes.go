package routes

import (
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_asset_tracker/app"
	"Gin_postgres_redis_asset_tracker/controllers"
	"Gin_postgres_redis_asset_tracker/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.Engine, s *controllers.Srv, rdb *redis.Client) {
	// 控制器与依赖
	assetCtl := controllers.NewAssetController(s)
	authCtl := controllers.NewAuthController(s)
	userCtl := controllers.NewUserController(s)

	// 复用的中间件
	actorMW := app.ResolveActor(s.AppSess, s.Repo, s.Tokens)
	authMW := app.AuthRequired()
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, rdb, 5*time.Minute)
	loginMW := app.RateLimit(session.NewLimiter(rdb, "asset:login", s.Cfg.LoginLimit, time.Minute))

	r.Use(actorMW)

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 登录（公开 + 受保护）
	// ------------------------------
	a := r.Group("/auth")
	{
		a.POST("/login", loginMW, authCtl.Login)
		a.POST("/passkey/login/begin", loginMW, authCtl.BeginPasskeyLogin)
		a.POST("/passkey/login/finish", authCtl.FinishPasskeyLogin)
	}
	aAuth := a.Group("", authMW, seenMW)
	{
		aAuth.GET("/whoami", authCtl.WhoAmI)
		aAuth.POST("/logout", authCtl.Logout)
		aAuth.POST("/passkey/register/begin", authCtl.BeginPasskeyRegistration)
		aAuth.POST("/passkey/register/finish", authCtl.FinishPasskeyRegistration)
	}

	// ------------------------------
	// 资产：浏览公开，其余需登录
	// ------------------------------
	assets := r.Group("/api/assets")
	{
		assets.GET("", assetCtl.ListAssets) // ?search=
		assets.GET("/:id", assetCtl.GetAsset)
	}
	assetsAuth := r.Group("/api/assets", authMW, seenMW)
	{
		assetsAuth.GET("/borrowed", assetCtl.ListBorrowed) // ?search=
		assetsAuth.POST("", assetCtl.CreateAsset)
		assetsAuth.POST("/:id/borrow", assetCtl.Borrow)
		assetsAuth.POST("/:id/return", assetCtl.Return)
		assetsAuth.DELETE("/:id", assetCtl.Delete)
		assetsAuth.POST("/:id/delete", assetCtl.Delete)
	}
	r.GET("/api/statistics", authMW, seenMW, assetCtl.Statistics)

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	users := r.Group("/api/users", adminMW)
	{
		users.GET("", userCtl.ListUsers) // ?q=&page=&size=
		users.DELETE("/:id", userCtl.DeleteUser)
	}

	// 上传的照片
	r.Static("/"+strings.Trim(s.Cfg.UploadPrefix, "/"), s.Cfg.UploadDir)
}
