// db/repo_assets.go
package db

import (
	"Gin_postgres_redis_asset_tracker/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateAssetInput struct {
	Name         string
	Type         string
	SerialNumber string
	AssetNumber  string // 可选
	PhotoPath    string // 可选：blob store 返回的路径
}

// Normalize 去掉首尾空白
func (in CreateAssetInput) Normalize() CreateAssetInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.AssetNumber = strings.TrimSpace(in.AssetNumber)
	return in
}

// Validate reports every missing required field at once.
func (in CreateAssetInput) Validate() error {
	in = in.Normalize()
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Type == "" {
		missing = append(missing, "type")
	}
	if in.SerialNumber == "" {
		missing = append(missing, "serial_number")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Catalog

func (r *Repo) CreateAsset(ctx context.Context, actor models.Actor, in CreateAssetInput) (*models.Asset, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.Normalize()

	a := &models.Asset{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Type:         in.Type,
		SerialNumber: in.SerialNumber,
		AssetNumber:  optional(in.AssetNumber),
		PhotoPath:    optional(in.PhotoPath),
		AdminID:      optional(actor.UserID),
	}
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, storageErr("create asset", err)
	}
	return a, nil
}

// assetKey 规范化资产 ID；非 UUID 必然不存在，不发给数据库
func assetKey(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func (r *Repo) FindAsset(ctx context.Context, id string) (*models.Asset, error) {
	key, ok := assetKey(id)
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	var a models.Asset
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		return nil, storageErr("find asset", err)
	}
	return &a, nil
}

func (r *Repo) searchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if search == "" {
			return tx
		}
		return tx.Where(containsExpr(tx, "asset_number"), search)
	}
}

// ListAssets 按 asset_number 子串过滤（区分大小写）；search 为空返回全部，顺序即存储顺序
func (r *Repo) ListAssets(ctx context.Context, search string) ([]models.Asset, error) {
	var assets []models.Asset
	if err := r.DB.WithContext(ctx).Scopes(r.searchScope(search)).Find(&assets).Error; err != nil {
		return nil, storageErr("list assets", err)
	}
	return assets, nil
}

// ListBorrowed 只返回借出中的资产，附带计算出的归还日与是否逾期
func (r *Repo) ListBorrowed(ctx context.Context, search string, now time.Time) ([]models.BorrowedAsset, error) {
	var assets []models.Asset
	if err := r.DB.WithContext(ctx).
		Where("is_borrowed = ?", true).
		Scopes(r.searchScope(search)).
		Find(&assets).Error; err != nil {
		return nil, storageErr("list borrowed", err)
	}
	out := make([]models.BorrowedAsset, 0, len(assets))
	for _, a := range assets {
		out = append(out, models.BorrowedAsset{
			Asset:      a,
			ReturnDate: a.ReturnDate(),
			Overdue:    a.Overdue(now),
		})
	}
	return out, nil
}

// DeleteAsset 硬删除；照片文件不随之删除
func (r *Repo) DeleteAsset(ctx context.Context, actor models.Actor, id string) (*models.Asset, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	key, ok := assetKey(id)
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	var a models.Asset
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&a, "id = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("asset %s: %w", id, ErrNotFound)
			}
			return storageErr("find asset", err)
		}
		if err := tx.Delete(&models.Asset{}, "id = ?", key).Error; err != nil {
			return storageErr("delete asset", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type typeRow struct {
	Type      string
	Borrowed  int64
	Remaining int64
}

// AggregateByType 一次分组扫描，统计每个类型借出/剩余数量
func (r *Repo) AggregateByType(ctx context.Context) (map[string]models.TypeCounts, error) {
	var rows []typeRow
	if err := r.DB.WithContext(ctx).
		Model(&models.Asset{}).
		Select(`type,
			SUM(CASE WHEN is_borrowed THEN 1 ELSE 0 END) AS borrowed,
			SUM(CASE WHEN is_borrowed THEN 0 ELSE 1 END) AS remaining`).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, storageErr("aggregate by type", err)
	}
	out := make(map[string]models.TypeCounts, len(rows))
	for _, row := range rows {
		out[row.Type] = models.TypeCounts{Borrowed: row.Borrowed, Remaining: row.Remaining}
	}
	return out, nil
}
