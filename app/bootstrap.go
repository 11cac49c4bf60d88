// app/bootstrap.go
package app

import (
	"context"
	"log/slog"

	"Gin_postgres_redis_asset_tracker/auth"

	"github.com/google/uuid"
)

// BootstrapAdmins 启动时为每个允许登录的用户名建好管理员账号
func BootstrapAdmins(ctx context.Context, users auth.UserStore, usernames []string) {
	for _, name := range usernames {
		u, err := users.FindOrCreateUser(ctx, name, uuid.NewString(), true)
		if err != nil {
			slog.Error("bootstrap admin failed", "username", name, "err", err)
			continue
		}
		slog.Info("admin ready", "username", u.Username, "id", u.ID)
	}
}
