package db

import (
	"context"
	"testing"

	"Gin_postgres_redis_asset_tracker/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRepo opens a private in-memory database with the production schema.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// 一个连接 = 一个内存库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(conn))
	return NewRepo(conn)
}

func newAdmin(t *testing.T, r *Repo, username string) models.Actor {
	t.Helper()
	u, err := r.FindOrCreateUser(context.Background(), username, uuid.NewString(), true)
	require.NoError(t, err)
	return models.Actor{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

func mustCreate(t *testing.T, r *Repo, actor models.Actor, in CreateAssetInput) *models.Asset {
	t.Helper()
	a, err := r.CreateAsset(context.Background(), actor, in)
	require.NoError(t, err)
	return a
}

func assertAvailable(t *testing.T, a *models.Asset) {
	t.Helper()
	require.False(t, a.IsBorrowed)
	require.Nil(t, a.BorrowerName)
	require.Nil(t, a.BorrowDate)
	require.Nil(t, a.BorrowLength)
}
