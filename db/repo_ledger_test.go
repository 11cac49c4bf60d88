package db

import (
	"context"
	"sync"
	"testing"

	"Gin_postgres_redis_asset_tracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowReturn_Scenario(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1", AssetNumber: "A1"})

	borrowed, err := r.BorrowAsset(ctx, admin, a.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 7})
	require.NoError(t, err)
	assert.True(t, borrowed.IsBorrowed)

	stored, err := r.FindAsset(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, stored.IsBorrowed)
	require.NotNil(t, stored.BorrowerName)
	assert.Equal(t, "Alice", *stored.BorrowerName)
	require.NotNil(t, stored.BorrowLength)
	assert.Equal(t, 7, *stored.BorrowLength)
	require.NotNil(t, stored.ReturnDate())
	assert.Equal(t, "2024-01-08", stored.ReturnDate().Format(models.DateLayout))

	returned, err := r.ReturnAsset(ctx, admin, a.ID)
	require.NoError(t, err)
	assertAvailable(t, returned)

	stored, err = r.FindAsset(ctx, a.ID)
	require.NoError(t, err)
	assertAvailable(t, stored)
}

func TestBorrow_AlreadyBorrowedKeepsFirstState(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	_, err := r.BorrowAsset(ctx, admin, a.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 7})
	require.NoError(t, err)

	_, err = r.BorrowAsset(ctx, admin, a.ID, BorrowInput{BorrowerName: "Bob", BorrowDate: "2024-02-01", BorrowLength: 3})
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.ErrorIs(t, err, ErrAlreadyBorrowed)
	assert.NotErrorIs(t, err, ErrAssetNotFound)

	stored, err := r.FindAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *stored.BorrowerName)
	assert.Equal(t, "2024-01-01", stored.BorrowDate.Format(models.DateLayout))
	assert.Equal(t, 7, *stored.BorrowLength)
}

func TestBorrow_MissingAsset(t *testing.T) {
	r := newTestRepo(t)
	admin := newAdmin(t, r, "admin")

	_, err := r.BorrowAsset(context.Background(), admin, "00000000-0000-0000-0000-000000000000",
		BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 7})
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyBorrowed)
}

func TestBorrow_InvalidInput(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	t.Run("bad date", func(t *testing.T) {
		for _, d := range []string{"01/02/2024", "2024-13-01", "", "tomorrow"} {
			_, err := r.BorrowAsset(ctx, admin, a.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: d, BorrowLength: 7})
			var de *InvalidDateError
			require.ErrorAs(t, err, &de, d)
			assert.Equal(t, d, de.Input)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := r.BorrowAsset(ctx, admin, a.ID, BorrowInput{BorrowerName: " ", BorrowDate: "2024-01-01", BorrowLength: 0})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"borrower_name", "borrow_length"}, ve.Fields)
	})

	stored, err := r.FindAsset(ctx, a.ID)
	require.NoError(t, err)
	assertAvailable(t, stored)
}

func TestReturn_AvailableIsNoop(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	_, err := r.ReturnAsset(ctx, admin, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrNotBorrowed)

	_, err = r.ReturnAsset(ctx, admin, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrAssetNotFound)

	stored, err := r.FindAsset(ctx, a.ID)
	require.NoError(t, err)
	assertAvailable(t, stored)
}

func TestLedger_RequiresActor(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, newAdmin(t, r, "admin"), CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	_, err := r.BorrowAsset(ctx, models.Actor{}, a.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 1})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = r.ReturnAsset(ctx, models.Actor{}, a.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBorrow_ConcurrentOnlyOneWins(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	admin := newAdmin(t, r, "admin")
	a := mustCreate(t, r, admin, CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.BorrowAsset(ctx, admin, a.ID, BorrowInput{BorrowerName: "Alice", BorrowDate: "2024-01-01", BorrowLength: 1})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrAlreadyBorrowed)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestBorrowedStateCheckConstraint(t *testing.T) {
	r := newTestRepo(t)
	a := mustCreate(t, r, newAdmin(t, r, "admin"), CreateAssetInput{Name: "Drill", Type: "Tool", SerialNumber: "SN1"})

	// 只写借用人、不置标志，约束应拒绝
	err := r.DB.Model(&models.Asset{}).Where("id = ?", a.ID).Update("borrower_name", "Alice").Error
	assert.Error(t, err)

	stored, err := r.FindAsset(context.Background(), a.ID)
	require.NoError(t, err)
	assertAvailable(t, stored)
}
