package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"Gin_postgres_redis_asset_tracker/models"

	"gorm.io/gorm"
)

type BorrowInput struct {
	BorrowerName string
	BorrowDate   string // YYYY-MM-DD
	BorrowLength int    // 天
}

// parse 校验输入并解析日期，不触碰存储
func (in BorrowInput) parse() (name string, date time.Time, err error) {
	name = strings.TrimSpace(in.BorrowerName)
	var bad []string
	if name == "" {
		bad = append(bad, "borrower_name")
	}
	if in.BorrowLength <= 0 {
		bad = append(bad, "borrow_length")
	}
	if len(bad) > 0 {
		return "", time.Time{}, &ValidationError{Fields: bad}
	}
	date, err = time.Parse(models.DateLayout, strings.TrimSpace(in.BorrowDate))
	if err != nil {
		return "", time.Time{}, &InvalidDateError{Input: in.BorrowDate}
	}
	return name, date, nil
}

// Ledger

// BorrowAsset 借出：锁住资产行 → 检查可借 → 条件更新四个字段
func (r *Repo) BorrowAsset(ctx context.Context, actor models.Actor, assetID string, in BorrowInput) (*models.Asset, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	name, date, err := in.parse()
	if err != nil {
		return nil, err
	}
	key, ok := assetKey(assetID)
	if !ok {
		return nil, notAvailable(ErrAssetNotFound)
	}

	var a models.Asset
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住该资产
		if err := forUpdate(tx).First(&a, "id = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notAvailable(ErrAssetNotFound)
			}
			return storageErr("lock asset", err)
		}
		// 2) 已借出则拒绝，不改任何字段
		if a.IsBorrowed {
			return notAvailable(ErrAlreadyBorrowed)
		}
		// 3) 条件更新：WHERE is_borrowed = false 防止没有行锁的方言并发双借
		res := tx.Model(&models.Asset{}).
			Where("id = ? AND is_borrowed = ?", a.ID, false).
			Updates(map[string]any{
				"is_borrowed":   true,
				"borrower_name": name,
				"borrow_date":   date,
				"borrow_length": in.BorrowLength,
			})
		if res.Error != nil {
			return storageErr("borrow asset", res.Error)
		}
		if res.RowsAffected != 1 {
			return notAvailable(ErrAlreadyBorrowed)
		}
		a.IsBorrowed = true
		a.BorrowerName = &name
		a.BorrowDate = &date
		length := in.BorrowLength
		a.BorrowLength = &length
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ReturnAsset 归还：三个借用字段与标志一起清空
func (r *Repo) ReturnAsset(ctx context.Context, actor models.Actor, assetID string) (*models.Asset, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	key, ok := assetKey(assetID)
	if !ok {
		return nil, returnNotFound(ErrAssetNotFound)
	}

	var a models.Asset
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&a, "id = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return returnNotFound(ErrAssetNotFound)
			}
			return storageErr("lock asset", err)
		}
		if !a.IsBorrowed {
			return returnNotFound(ErrNotBorrowed)
		}
		res := tx.Model(&models.Asset{}).
			Where("id = ? AND is_borrowed = ?", a.ID, true).
			Updates(map[string]any{
				"is_borrowed":   false,
				"borrower_name": nil,
				"borrow_date":   nil,
				"borrow_length": nil,
			})
		if res.Error != nil {
			return storageErr("return asset", res.Error)
		}
		if res.RowsAffected != 1 {
			return returnNotFound(ErrNotBorrowed)
		}
		a.IsBorrowed = false
		a.BorrowerName = nil
		a.BorrowDate = nil
		a.BorrowLength = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
