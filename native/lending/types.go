package lending

import "cardledger/core/types"

// Category and LockAction are the lending engine's view of a card; the
// canonical definitions live in core/types since native/card, native/pot
// and native/rewards all need them too.
type (
	Category   = types.Category
	LockAction = types.LockAction
	Card       = types.Card
)

// Lending is an open lend position. It is destroyed by Withdraw.
type Lending struct {
	Lender        [20]byte
	Category      Category
	TokenID       uint64
	PrincipalNet  uint32
	LentAtSeconds uint64
}

// Borrowing is an open borrow position. It is destroyed by Repay or by a
// touch that fully liquidates it.
//
// Invariant: Weight == Reserve outside of touch(); see liquidation.go.
type Borrowing struct {
	Borrower             [20]byte
	Category             Category
	TokenID              uint64
	Principal            uint32
	Reserve              uint64
	CollateralPower      uint32
	BorrowedAtSeconds    uint64
	LastLiquidationIndex uint64
	Weight               uint64
}

// PoolState is the engine's singleton aggregate. Every mutating operation
// reads and writes it.
type PoolState struct {
	TotalOffer         uint64
	TotalBorrowedPower uint64
	TotalDemand        uint64
	TotalLoanDuration  uint64
	TotalLoanCount     uint64
	TotalInterest      uint64
	TotalWeight        uint64
	LiquidationIndex   uint64
}

// Apy recomputes the pool's current APY from its own aggregates.
func (p PoolState) Apy(alpha uint32) uint64 {
	return apyEngine(p.TotalDemand, p.TotalOffer, p.TotalLoanDuration, p.TotalLoanCount, alpha)
}
