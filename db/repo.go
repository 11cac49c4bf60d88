package db

import (
	"Gin_postgres_redis_asset_tracker/models"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// forUpdate 锁住目标行；SQLite 没有行锁，靠条件 UPDATE 兜底
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// containsExpr 区分大小写、不含通配符语义的子串匹配
func containsExpr(tx *gorm.DB, column string) string {
	if tx.Dialector.Name() == "sqlite" {
		return "instr(" + column + ", ?) > 0"
	}
	return "strpos(" + column + ", ?) > 0"
}

// Users

func (r *Repo) TouchUserLogin(ctx context.Context, userID string) error {
	// 用数据库时间，计数自增
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"last_seen_at":  gorm.Expr("CURRENT_TIMESTAMP"),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
		}).Error
	return storageErr("touch user login", err)
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	return storageErr("touch user seen", err)
}

// 按 ID 查
func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, userLookupErr(err)
	}
	return &u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, userLookupErr(err)
	}
	return &u, nil
}

func userLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %w", ErrNotFound)
	}
	return storageErr("find user", err)
}

// FindOrCreateUser 用户名存在则返回；否则按 newID 创建。isAdmin 只会从 false 升级为 true
func (r *Repo) FindOrCreateUser(ctx context.Context, username, newID string, isAdmin bool) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = models.User{ID: newID, Username: username, DisplayName: username, IsAdmin: isAdmin}
		if err := r.DB.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, storageErr("create user", err)
		}
		return &u, nil
	}
	if err != nil {
		return nil, storageErr("find user", err)
	}
	if isAdmin && !u.IsAdmin {
		if err := r.SetUserAdmin(ctx, u.ID, true); err != nil {
			return nil, err
		}
		u.IsAdmin = true
	}
	return &u, nil
}

func (r *Repo) SetUserAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return storageErr("set admin", r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_admin", isAdmin).Error)
}

// 列表（分页 + 关键词，关键词匹配用户名/显示名）
type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (ListUsersResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, storageErr("count users", err)
	}

	var users []models.User
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, storageErr("list users", err)
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

// DeleteUserByID 删除用户：其管理的资产 admin_id 置空（SET NULL），资产本身保留；凭据随用户删除
func (r *Repo) DeleteUserByID(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := forUpdate(tx).First(&u, "id = ?", id).Error; err != nil {
			return userLookupErr(err)
		}
		// 外键约束也会置空，这里显式执行以不依赖方言
		if err := tx.Model(&models.Asset{}).
			Where("admin_id = ?", id).
			Update("admin_id", nil).Error; err != nil {
			return storageErr("detach assets", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Credential{}).Error; err != nil {
			return storageErr("delete credentials", err)
		}
		if err := tx.Delete(&models.User{ID: id}).Error; err != nil {
			return storageErr("delete user", err)
		}
		return nil
	})
}

// Credentials

func (r *Repo) LoadUserCredentials(ctx context.Context, userID string) ([]models.Credential, error) {
	var cs []models.Credential
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&cs).Error; err != nil {
		return nil, storageErr("load credentials", err)
	}
	return cs, nil
}

func (r *Repo) AddCredential(ctx context.Context, c *models.Credential) error {
	return storageErr("add credential", r.DB.WithContext(ctx).Create(c).Error)
}

func (r *Repo) UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	err := r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{
			"sign_count":    newCount,
			"clone_warning": cloneWarn,
			"last_used_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	return storageErr("update credential counter", err)
}

func (r *Repo) FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, *models.Credential, error) {
	var c models.Credential
	if err := r.DB.WithContext(ctx).Where("credential_id = ?", credID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("credential %w", ErrNotFound)
		}
		return nil, nil, storageErr("find credential", err)
	}
	u, err := r.FindUserByID(ctx, c.UserID)
	if err != nil {
		return nil, nil, err
	}
	return u, &c, nil
}
