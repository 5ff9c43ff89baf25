package reporting

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cardledger/core/events"
	"cardledger/core/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestSinkRecordsWithdrawPaidAsClosedLending(t *testing.T) {
	db := openTestDB(t)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sink := NewSink(db, nil)
	sink.now = func() time.Time { return fixed }

	sink.Emit(events.WithdrawPaid{
		Lender:       [20]byte{1},
		Category:     types.CategoryResource,
		TokenID:      5,
		PrincipalNet: 990,
		Interest:     12,
		Payout:       1002,
	})

	var rows []ClosedLending
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(990), rows[0].PrincipalNet)
	require.Equal(t, uint64(1002), rows[0].Payout)
	require.Equal(t, "resource", rows[0].Category)
	require.True(t, rows[0].ClosedAt.Equal(fixed))
}

func TestSinkRecordsOnlyLiquidatedLoanTouched(t *testing.T) {
	db := openTestDB(t)
	sink := NewSink(db, nil)

	sink.Emit(events.LoanTouched{Borrower: [20]byte{1}, Category: types.CategoryResource, TokenID: 1, Liquidated: false})
	sink.Emit(events.LoanTouched{Borrower: [20]byte{2}, Category: types.CategoryResource, TokenID: 2, Liquidated: true, RemainingReserve: 0})

	var rows []ClosedBorrowing
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Liquidated)
	require.Equal(t, uint64(2), rows[0].TokenID)
}

func TestSinkRecordsApySamples(t *testing.T) {
	db := openTestDB(t)
	sink := NewSink(db, nil)

	sink.Emit(events.ApyUpdated{Apy: 120_000})
	sink.Emit(events.ApyUpdated{Apy: 135_000})

	var rows []ApySample
	require.NoError(t, db.Order("apy asc").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, uint64(120_000), rows[0].Apy)
	require.Equal(t, uint64(135_000), rows[1].Apy)
}

func TestSinkIgnoresNonTerminalEvents(t *testing.T) {
	db := openTestDB(t)
	sink := NewSink(db, nil)

	sink.Emit(events.LendDeposited{Lender: [20]byte{1}, Category: types.CategoryResource, TokenID: 1})
	sink.Emit(events.BorrowOpened{Borrower: [20]byte{1}, Category: types.CategoryResource, TokenID: 1})

	var lending []ClosedLending
	var borrowing []ClosedBorrowing
	require.NoError(t, db.Find(&lending).Error)
	require.NoError(t, db.Find(&borrowing).Error)
	require.Empty(t, lending)
	require.Empty(t, borrowing)
}
