package types

import "fmt"

// Category classifies a card for the purposes of the lending engine. Only
// CategoryResource and CategoryLeader cards may participate in
// lend/borrow/repay/withdraw; the rest exist so the category guard (spec
// scenario S5) has something concrete to reject.
type Category uint8

const (
	CategoryResource Category = iota
	CategoryLeader
	CategorySkill
	CategoryWeapon
)

func (c Category) String() string {
	switch c {
	case CategoryResource:
		return "resource"
	case CategoryLeader:
		return "leader"
	case CategorySkill:
		return "skill"
	case CategoryWeapon:
		return "weapon"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// LendEligible reports whether the category may be lent or borrowed against.
func (c Category) LendEligible() bool {
	return c == CategoryResource || c == CategoryLeader
}

// LockAction identifies which subsystem currently holds a card locked. A
// card can be locked by exactly one action at a time.
type LockAction uint8

const (
	LockNone LockAction = iota
	LockLend
	LockBorrow
	LockStake
	LockFight
	LockDeck
)

func (a LockAction) String() string {
	switch a {
	case LockNone:
		return "none"
	case LockLend:
		return "lend"
	case LockBorrow:
		return "borrow"
	case LockStake:
		return "stake"
	case LockFight:
		return "fight"
	case LockDeck:
		return "deck"
	default:
		return fmt.Sprintf("lock(%d)", uint8(a))
	}
}

// CardID identifies a single card by owner, category and token id. It is a
// value key, never a pointer — loans reference cards this way so there is no
// ownership-graph cycle between cards and positions.
type CardID struct {
	Owner    [20]byte `json:"owner"`
	Category Category `json:"category"`
	TokenID  uint64   `json:"tokenId"`
}

func (id CardID) String() string {
	return fmt.Sprintf("%x/%s/%d", id.Owner, id.Category, id.TokenID)
}

// Card is the external entity the lending engine locks and adjusts the POWER
// of; metadata, transfers and minting mechanics live outside this repository.
type Card struct {
	Power          uint32     `json:"power"`
	LockedByAction LockAction `json:"lockedByAction"`
}
