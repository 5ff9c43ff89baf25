package lending

import (
	"errors"

	"cardledger/core/events"
)

// Sentinel errors. Every lending transaction aborts without partial state
// changes; callers distinguish failure kinds with errors.Is.
var (
	errNilState      = errors.New("lending engine: state not configured")
	errNilCards      = errors.New("lending engine: card store not configured")
	ErrNotAuthorized = errors.New("lending engine: caller is not the position's principal")
	ErrBadCategory   = errors.New("lending engine: category is not lend-eligible")
	ErrCardNotFound  = errors.New("lending engine: card not found")
	ErrCardLocked    = errors.New("lending engine: card is locked by another action")
	ErrCardNotLocked = errors.New("lending engine: card is not locked by the expected action")
	ErrInsufficientPower = errors.New("lending engine: card power is insufficient")
	ErrPositionExists    = errors.New("lending engine: a position already exists for this card")
	ErrPositionNotFound  = errors.New("lending engine: no open position for this card")
	ErrExceedsMaxBorrow       = errors.New("lending engine: requested amount exceeds max_borrow")
	ErrInsufficientOffer      = errors.New("lending engine: total_offer cannot cover the requested amount")
	ErrInsufficientCollateral = errors.New("lending engine: collateral cannot cover principal, reserve, fee and buffer")
	ErrInsufficientUserPower  = errors.New("lending engine: user power is insufficient to repay")
	ErrReserveExhausted       = errors.New("lending engine: required reserve would be zero")
)

// State is the persistence surface the engine needs: one singleton pool plus
// keyed maps for Lending and Borrowing positions. A reimplementation is free
// to choose any encoding behind this interface; kvstate.go supplies the one
// backed by storage.Database.
type State interface {
	GetPool() (PoolState, error)
	PutPool(PoolState) error

	GetLending(category Category, tokenID uint64) (*Lending, error)
	PutLending(*Lending) error
	DeleteLending(category Category, tokenID uint64) error

	GetBorrowing(category Category, tokenID uint64) (*Borrowing, error)
	PutBorrowing(*Borrowing) error
	DeleteBorrowing(category Category, tokenID uint64) error

	// ListActiveBorrowings enumerates every open borrowing. It backs the
	// daemon's periodic touch_loans job (§4.5, §10) and is not on the
	// critical path of any single-loan operation.
	ListActiveBorrowings() ([]*Borrowing, error)

	// GetUserPower/PutUserPower track a player's off-card POWER balance —
	// credited by Borrow, debited by Repay. It is engine-owned state, not
	// an external collaborator, because its only writers are this engine.
	GetUserPower(owner [20]byte) (uint64, error)
	PutUserPower(owner [20]byte, power uint64) error
}

// CardStore is the external card collaborator (§6): the engine locks cards
// and adjusts their POWER but owns neither minting nor metadata.
type CardStore interface {
	ReadCard(owner [20]byte, category Category, tokenID uint64) (*Card, error)
	WriteCard(owner [20]byte, category Category, tokenID uint64, card Card) error
}

// Clock abstracts the host ledger's timestamp source so tests can fix "now".
type Clock interface {
	NowSeconds() uint64
}

// PotAccumulator receives fee POWER skimmed from lend/borrow operations.
type PotAccumulator interface {
	Accumulate(owner [20]byte, action string, fee uint32)
}

// RewardMinter is a fire-and-forget side effect; the engine never reads its
// result. HawAi is the side accumulator described in the glossary.
type RewardMinter interface {
	MintReward(owner [20]byte, amount uint64)
	BumpHawAi(owner [20]byte, amount uint64)
}

// EventBus receives the typed events described in §6. events.NoopEmitter
// satisfies this so a bus is never required to be non-nil.
type EventBus = events.Emitter
