package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cardledger/core/events"
	"cardledger/core/types"
	"cardledger/reporting"
)

func openTestStore(t *testing.T) *reporting.Sink {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, reporting.AutoMigrate(db))
	return reporting.NewSink(db, nil)
}

func TestClosedLendingToParquetWritesOneRowPerClosedPosition(t *testing.T) {
	store := openTestStore(t)
	store.Emit(events.WithdrawPaid{Lender: [20]byte{1}, Category: types.CategoryResource, TokenID: 1, PrincipalNet: 100, Interest: 5, Payout: 105})
	store.Emit(events.WithdrawPaid{Lender: [20]byte{2}, Category: types.CategoryLeader, TokenID: 2, PrincipalNet: 200, Interest: 10, Payout: 210})

	path := filepath.Join(t.TempDir(), "closed_lending.parquet")
	count, err := ClosedLendingToParquet(store, time.Time{}, time.Now().Add(24*time.Hour), path)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestClosedBorrowingToParquetOnlyIncludesRangeMatches(t *testing.T) {
	store := openTestStore(t)
	before := time.Now()
	store.Emit(events.LoanTouched{Borrower: [20]byte{1}, Category: types.CategoryResource, TokenID: 1, Liquidated: true})
	after := time.Now().Add(time.Second)

	path := filepath.Join(t.TempDir(), "closed_borrowing.parquet")
	count, err := ClosedBorrowingToParquet(store, before, after, path)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	outOfRange, err := ClosedBorrowingToParquet(store, after, after.Add(time.Hour), filepath.Join(t.TempDir(), "empty.parquet"))
	require.NoError(t, err)
	require.Equal(t, 0, outOfRange)
}
