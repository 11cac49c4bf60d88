package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"Gin_postgres_redis_asset_tracker/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assetNumbers(as []models.Asset) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		if a.AssetNumber != nil {
			out = append(out, *a.AssetNumber)
		}
	}
	return out
}

func TestCreateAsset(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")

	a, err := r.CreateAsset(ctx, admin, CreateAssetInput{
		Name:         "  Drill ",
		Type:         "Tool",
		SerialNumber: "SN1",
		AssetNumber:  "A1",
		PhotoPath:    "static/uploads/abc.jpg",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Drill", a.Name)
	require.NotNil(t, a.AdminID)
	assert.Equal(t, admin.UserID, *a.AdminID)
	assertAvailable(t, a)

	got, err := r.FindAsset(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PhotoPath)
	assert.Equal(t, "static/uploads/abc.jpg", *got.PhotoPath)
	require.NotNil(t, got.AssetNumber)
	assert.Equal(t, "A1", *got.AssetNumber)
}

func TestCreateAsset_OptionalFieldsStayNull(t *testing.T) {
	r := newTestRepo(t)
	a := mustCreate(t, r, newAdmin(t, r, "admin"), CreateAssetInput{Name: "Tripod", Type: "Camera", SerialNumber: "T1"})

	got, err := r.FindAsset(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssetNumber)
	assert.Nil(t, got.PhotoPath)
}

func TestCreateAsset_Validation(t *testing.T) {
	r := newTestRepo(t)
	admin := newAdmin(t, r, "admin")

	tests := []struct {
		name   string
		in     CreateAssetInput
		fields []string
	}{
		{"all missing", CreateAssetInput{}, []string{"name", "type", "serial_number"}},
		{"blank name", CreateAssetInput{Name: "   ", Type: "Tool", SerialNumber: "SN"}, []string{"name"}},
		{"missing serial", CreateAssetInput{Name: "Drill", Type: "Tool"}, []string{"serial_number"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateAsset(context.Background(), admin, tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.fields, ve.Fields)
		})
	}

	all, err := r.ListAssets(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCatalog_RequiresActor(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, newAdmin(t, r, "admin"), CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	_, err := r.CreateAsset(ctx, models.Actor{}, CreateAssetInput{Name: "X", Type: "Y", SerialNumber: "Z"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = r.DeleteAsset(ctx, models.Actor{}, a.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = r.FindAsset(ctx, a.ID)
	assert.NoError(t, err)
}

func TestListAssets_Search(t *testing.T) {
	r := newTestRepo(t)
	admin := newAdmin(t, r, "admin")
	for _, n := range []string{"A100", "B100", "A200"} {
		mustCreate(t, r, admin, CreateAssetInput{Name: "item " + n, Type: "Tool", SerialNumber: "SN-" + n, AssetNumber: n})
	}
	mustCreate(t, r, admin, CreateAssetInput{Name: "no number", Type: "Tool", SerialNumber: "SN-X"})

	tests := []struct {
		search string
		want   []string
	}{
		{"100", []string{"A100", "B100"}},
		{"A", []string{"A100", "A200"}},
		{"a", []string{}},
		{"%", []string{}},
		{"A2", []string{"A200"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got, err := r.ListAssets(context.Background(), tt.search)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, assetNumbers(got))
		})
	}

	all, err := r.ListAssets(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListBorrowed(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a1 := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1", AssetNumber: "A100"})
	mustCreate(t, r, admin, CreateAssetInput{Name: "Saw", Type: "Tool", SerialNumber: "SN2", AssetNumber: "A200"})

	_, err := r.BorrowAsset(ctx, admin, a1.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 7})
	require.NoError(t, err)

	onTime := time.Date(2024, 1, 8, 18, 0, 0, 0, time.UTC)
	got, err := r.ListBorrowed(ctx, "", onTime)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a1.ID, got[0].ID)
	require.NotNil(t, got[0].ReturnDate)
	assert.Equal(t, "2024-01-08", got[0].ReturnDate.Format(models.DateLayout))
	assert.False(t, got[0].Overdue)

	late, err := r.ListBorrowed(ctx, "", onTime.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.True(t, late[0].Overdue)

	none, err := r.ListBorrowed(ctx, "A2", onTime)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteAsset(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	deleted, err := r.DeleteAsset(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	_, err = r.FindAsset(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAsset_NotFoundLeavesStorage(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	_, err := r.DeleteAsset(ctx, admin, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := r.ListAssets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteAsset_StorageFailureRollsBack(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	require.NoError(t, r.DB.Callback().Delete().Before("gorm:delete").Register("test:fail_delete", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk full"))
	}))

	_, err := r.DeleteAsset(ctx, admin, a.ID)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "delete asset", se.Op)

	_, err = r.FindAsset(ctx, a.ID)
	assert.NoError(t, err)
}

func TestAssetOps_MalformedIDIsNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")

	// 模拟 postgres 对 uuid 列的类型错误：任何查询都失败
	require.NoError(t, r.DB.Callback().Query().Before("gorm:query").Register("test:fail_query", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("invalid input syntax for type uuid"))
	}))
	var se *StorageError
	_, err := r.FindAsset(ctx, uuid.NewString())
	require.ErrorAs(t, err, &se)

	in := BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 7}
	for _, id := range []string{"abc", "1", ""} {
		t.Run("id="+id, func(t *testing.T) {
			_, err := r.FindAsset(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.False(t, errors.As(err, &se))

			_, err = r.BorrowAsset(ctx, admin, id, in)
			assert.ErrorIs(t, err, ErrNotAvailable)
			assert.ErrorIs(t, err, ErrAssetNotFound)

			_, err = r.ReturnAsset(ctx, admin, id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, err, ErrAssetNotFound)

			_, err = r.DeleteAsset(ctx, admin, id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.False(t, errors.As(err, &se))
		})
	}
}

func TestAggregateByType(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")

	empty, err := r.AggregateByType(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	drill := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})
	mustCreate(t, r, admin, CreateAssetInput{Name: "Saw", Type: "Tool", SerialNumber: "SN2"})
	mustCreate(t, r, admin, CreateAssetInput{Name: "Canon", Type: "Camera", SerialNumber: "SN3"})
	_, err = r.BorrowAsset(ctx, admin, drill.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 3})
	require.NoError(t, err)

	got, err := r.AggregateByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.TypeCounts{
		"Tool":   {Borrowed: 1, Remaining: 1},
		"Camera": {Borrowed: 0, Remaining: 1},
	}, got)

	all, err := r.ListAssets(ctx, "")
	require.NoError(t, err)
	var sum int64
	for _, c := range got {
		sum += c.Borrowed + c.Remaining
	}
	assert.EqualValues(t, len(all), sum)
}
