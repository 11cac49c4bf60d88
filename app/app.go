package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_asset_tracker/config"
	"Gin_postgres_redis_asset_tracker/db"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Config config.Config
}

// NewRouter builds the gin engine with logging, recovery and CORS.
func NewRouter(cfg config.Config) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	useCORS(r, corsOrigins(cfg.WebOrigin, cfg.RPOrigins))
	return r
}

// NewWebAuthn configures the relying party.
func NewWebAuthn(cfg config.Config) (*webauthn.WebAuthn, error) {
	return webauthn.New(&webauthn.Config{
		RPDisplayName: "Asset Tracker Passkeys",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
}

func New(cfg config.Config) (*App, error) {
	// --- DB: Postgres ---
	dbConn, err := db.ConnectDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	// --- WebAuthn RP ---
	wa, err := NewWebAuthn(cfg)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	slog.Info("app initialised", "redis", cfg.Redis.Addr, "rp_id", cfg.RPID)
	return &App{Router: NewRouter(cfg), DB: dbConn, RDB: rdb, WA: wa, Config: cfg}, nil
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
