package events

import (
	"strconv"

	"cardledger/core/types"
	"cardledger/crypto"
)

const (
	// TypeLendDeposited is emitted when a card is committed to the lend pool.
	TypeLendDeposited = "lending.deposited"
	// TypeBorrowOpened is emitted when a borrowing position is created.
	TypeBorrowOpened = "lending.borrowOpened"
	// TypeWithdrawPaid is emitted when a lender exits and is paid out.
	TypeWithdrawPaid = "lending.withdrawPaid"
	// TypeLoanTouched is emitted every time a borrowing is lazily reconciled.
	TypeLoanTouched = "lending.loanTouched"
	// TypeIndexUpdated is emitted whenever the global liquidation index advances.
	TypeIndexUpdated = "lending.indexUpdated"
	// TypeApyUpdated is emitted after any operation that recomputes the pool APY.
	TypeApyUpdated = "lending.apyUpdated"
)

func addr(a [20]byte) string {
	return crypto.MustNewAddress(crypto.PlayerPrefix, a[:]).String()
}

// LendDeposited captures a successful lend.
type LendDeposited struct {
	Lender       [20]byte
	Category     types.Category
	TokenID      uint64
	PrincipalNet uint32
	Fee          uint32
	LentAt       uint64
}

func (LendDeposited) EventType() string { return TypeLendDeposited }

func (e LendDeposited) Event() *types.Event {
	return &types.Event{Type: TypeLendDeposited, Attributes: map[string]string{
		"lender":       addr(e.Lender),
		"category":     e.Category.String(),
		"tokenId":      strconv.FormatUint(e.TokenID, 10),
		"principalNet": strconv.FormatUint(uint64(e.PrincipalNet), 10),
		"fee":          strconv.FormatUint(uint64(e.Fee), 10),
		"lentAt":       strconv.FormatUint(e.LentAt, 10),
	}}
}

// BorrowOpened captures a successful borrow.
type BorrowOpened struct {
	Borrower        [20]byte
	Category        types.Category
	TokenID         uint64
	Principal       uint32
	Reserve         uint64
	CollateralPower uint32
	Fee             uint32
	BorrowedAt      uint64
}

func (BorrowOpened) EventType() string { return TypeBorrowOpened }

func (e BorrowOpened) Event() *types.Event {
	return &types.Event{Type: TypeBorrowOpened, Attributes: map[string]string{
		"borrower":        addr(e.Borrower),
		"category":        e.Category.String(),
		"tokenId":         strconv.FormatUint(e.TokenID, 10),
		"principal":       strconv.FormatUint(uint64(e.Principal), 10),
		"reserve":         strconv.FormatUint(e.Reserve, 10),
		"collateralPower": strconv.FormatUint(uint64(e.CollateralPower), 10),
		"fee":             strconv.FormatUint(uint64(e.Fee), 10),
		"borrowedAt":      strconv.FormatUint(e.BorrowedAt, 10),
	}}
}

// WithdrawPaid captures a lender exit payout.
type WithdrawPaid struct {
	Lender       [20]byte
	Category     types.Category
	TokenID      uint64
	PrincipalNet uint32
	Interest     uint64
	Payout       uint64
}

func (WithdrawPaid) EventType() string { return TypeWithdrawPaid }

func (e WithdrawPaid) Event() *types.Event {
	return &types.Event{Type: TypeWithdrawPaid, Attributes: map[string]string{
		"lender":       addr(e.Lender),
		"category":     e.Category.String(),
		"tokenId":      strconv.FormatUint(e.TokenID, 10),
		"principalNet": strconv.FormatUint(uint64(e.PrincipalNet), 10),
		"interest":     strconv.FormatUint(e.Interest, 10),
		"payout":       strconv.FormatUint(e.Payout, 10),
	}}
}

// LoanTouched captures a lazy reconciliation of a borrowing's reserve.
type LoanTouched struct {
	Borrower        [20]byte
	Category        types.Category
	TokenID         uint64
	Haircut         uint64
	RemainingReserve uint64
	Liquidated      bool
}

func (LoanTouched) EventType() string { return TypeLoanTouched }

func (e LoanTouched) Event() *types.Event {
	return &types.Event{Type: TypeLoanTouched, Attributes: map[string]string{
		"borrower":         addr(e.Borrower),
		"category":         e.Category.String(),
		"tokenId":          strconv.FormatUint(e.TokenID, 10),
		"haircut":          strconv.FormatUint(e.Haircut, 10),
		"remainingReserve": strconv.FormatUint(e.RemainingReserve, 10),
		"liquidated":       strconv.FormatBool(e.Liquidated),
	}}
}

// IndexUpdated captures an advance of the global liquidation index.
type IndexUpdated struct {
	Index       uint64
	Delta       uint64
	Deficit     uint64
	TotalWeight uint64
}

func (IndexUpdated) EventType() string { return TypeIndexUpdated }

func (e IndexUpdated) Event() *types.Event {
	return &types.Event{Type: TypeIndexUpdated, Attributes: map[string]string{
		"index":       strconv.FormatUint(e.Index, 10),
		"delta":       strconv.FormatUint(e.Delta, 10),
		"deficit":     strconv.FormatUint(e.Deficit, 10),
		"totalWeight": strconv.FormatUint(e.TotalWeight, 10),
	}}
}

// ApyUpdated captures the APY recomputed by an operation.
type ApyUpdated struct {
	Apy uint64
}

func (ApyUpdated) EventType() string { return TypeApyUpdated }

func (e ApyUpdated) Event() *types.Event {
	return &types.Event{Type: TypeApyUpdated, Attributes: map[string]string{
		"apy": strconv.FormatUint(e.Apy, 10),
	}}
}
