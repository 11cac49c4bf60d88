// models/asset.go
package models

import "time"

const AssetTable = "assets"

// DateLayout is the wire format of borrow dates.
const DateLayout = "2006-01-02"

// Asset 一件可借出的实物。身份字段创建后不变，借还字段由 ledger 原子改写
type Asset struct {
	ID           string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string  `gorm:"size:100;not null" json:"name"`
	Type         string  `gorm:"size:50;not null;index" json:"type"`
	SerialNumber string  `gorm:"size:100;not null" json:"serialNumber"`
	AssetNumber  *string `gorm:"size:100;index" json:"assetNumber,omitempty"`
	PhotoPath    *string `gorm:"size:200" json:"photoPath,omitempty"`

	// CHECK 约束保证借还字段要么全有要么全无
	IsBorrowed   bool       `gorm:"not null;default:false;check:chk_assets_borrowed_state,(is_borrowed AND borrower_name IS NOT NULL AND borrow_date IS NOT NULL AND borrow_length IS NOT NULL) OR (NOT is_borrowed AND borrower_name IS NULL AND borrow_date IS NULL AND borrow_length IS NULL)" json:"isBorrowed"`
	BorrowerName *string    `gorm:"size:100" json:"borrowerName,omitempty"`
	BorrowDate   *time.Time `json:"borrowDate,omitempty"`
	BorrowLength *int       `json:"borrowLength,omitempty"`

	// 弱引用：删除管理员时置空
	AdminID *string `gorm:"type:uuid;index" json:"adminId,omitempty"`
	Admin   *User   `gorm:"foreignKey:AdminID;constraint:OnDelete:SET NULL" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Asset) TableName() string { return AssetTable }

// ReturnDate is borrow_date + borrow_length days, nil while the asset is available.
func (a Asset) ReturnDate() *time.Time {
	if !a.IsBorrowed || a.BorrowDate == nil || a.BorrowLength == nil {
		return nil
	}
	d := CalendarDate(*a.BorrowDate).AddDate(0, 0, *a.BorrowLength)
	return &d
}

// Overdue reports whether the expected return date lies before the calendar day of now.
func (a Asset) Overdue(now time.Time) bool {
	rd := a.ReturnDate()
	if rd == nil {
		return false
	}
	return CalendarDate(now).After(*rd)
}

// CalendarDate truncates t to midnight UTC of its UTC calendar day.
// pgx 读回的 timestamptz 在 time.Local，先转 UTC 再取日期
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BorrowedAsset 借出列表的读模型：带计算出的归还日
type BorrowedAsset struct {
	Asset
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Overdue    bool       `json:"overdue"`
}

// TypeCounts 按类型统计
type TypeCounts struct {
	Borrowed  int64 `json:"borrowed"`
	Remaining int64 `json:"remaining"`
}
