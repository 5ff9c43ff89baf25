// Package stake implements a fixed-APY escrow: a simpler sibling of
// native/lending with no shared risk pool, no reserve and no liquidation
// index. A staked card accrues interest linearly at a configured rate until
// unstaked; nothing it does can affect another staker's position.
package stake

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"cardledger/core/types"
	"cardledger/storage"
)

var (
	errCardNotFound  = errors.New("stake: card not found")
	errCardLocked    = errors.New("stake: card is locked by another action")
	errCardNotLocked = errors.New("stake: card is not locked by stake")
	errPositionNotFound = errors.New("stake: no open stake for this card")
	errNotAuthorized    = errors.New("stake: caller is not the position's owner")
	errBadCategory      = errors.New("stake: category is not lend-eligible")
)

// CardStore is the subset of native/lending.CardStore this package needs;
// native/card.Store satisfies it structurally.
type CardStore interface {
	ReadCard(owner [20]byte, category types.Category, tokenID uint64) (*types.Card, error)
	WriteCard(owner [20]byte, category types.Category, tokenID uint64, card types.Card) error
}

// Clock abstracts the host ledger's timestamp source.
type Clock interface {
	NowSeconds() uint64
}

// Position is an open stake. Unlike native/lending.Borrowing, it carries no
// weight or liquidation-index bookkeeping — there is nothing here for a
// deficit to socialize across.
type Position struct {
	Owner           [20]byte
	Category        types.Category
	TokenID         uint64
	Principal       uint32
	StakedAtSeconds uint64
}

func key(category types.Category, tokenID uint64) []byte {
	buf := make([]byte, 0, len("stake/")+1+8)
	buf = append(buf, "stake/"...)
	buf = append(buf, byte(category))
	var tokenBytes [8]byte
	binary.BigEndian.PutUint64(tokenBytes[:], tokenID)
	buf = append(buf, tokenBytes[:]...)
	return buf
}

// Escrow orchestrates Stake/Unstake over a card store and a key-value
// database, at a fixed APY (Scale-units, same fixed-point convention as
// native/lending) configured at construction time.
type Escrow struct {
	db       storage.Database
	cards    CardStore
	clock    Clock
	fixedApy uint64
}

// NewEscrow constructs a stake escrow. fixedApy is a Scale-unit APY, e.g.
// 50_000 for 5%.
func NewEscrow(db storage.Database, cards CardStore, clock Clock, fixedApy uint64) *Escrow {
	return &Escrow{db: db, cards: cards, clock: clock, fixedApy: fixedApy}
}

func (e *Escrow) now() uint64 {
	if e.clock == nil {
		return 0
	}
	return e.clock.NowSeconds()
}

func (e *Escrow) get(category types.Category, tokenID uint64) (*Position, error) {
	raw, err := e.db.Get(key(category, tokenID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e *Escrow) put(p *Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return e.db.Put(key(p.Category, p.TokenID), raw)
}

func (e *Escrow) delete(category types.Category, tokenID uint64) error {
	return e.db.Delete(key(category, tokenID))
}

// Stake locks a card and escrows its full POWER for fixed-APY accrual.
func (e *Escrow) Stake(caller [20]byte, category types.Category, tokenID uint64) error {
	if !category.LendEligible() {
		return errBadCategory
	}
	card, err := e.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return errCardNotFound
	}
	if card.LockedByAction != types.LockNone {
		return errCardLocked
	}
	if existing, err := e.get(category, tokenID); err != nil {
		return err
	} else if existing != nil {
		return errors.New("stake: a stake already exists for this card")
	}

	principal := card.Power
	card.LockedByAction = types.LockStake
	if err := e.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}
	return e.put(&Position{
		Owner:           caller,
		Category:        category,
		TokenID:         tokenID,
		Principal:       principal,
		StakedAtSeconds: e.now(),
	})
}

// Unstake closes a stake, crediting principal plus linearly-accrued
// interest back to the card.
func (e *Escrow) Unstake(caller [20]byte, category types.Category, tokenID uint64) error {
	card, err := e.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return errCardNotFound
	}
	if card.LockedByAction != types.LockStake {
		return errCardNotLocked
	}

	position, err := e.get(category, tokenID)
	if err != nil {
		return err
	}
	if position == nil {
		return errPositionNotFound
	}
	if position.Owner != caller {
		return errNotAuthorized
	}

	hours := (e.now() - position.StakedAtSeconds) / 3600
	// Same order of operations as native/lending's interestOverDuration:
	// annualize first, then scale by elapsed hours, to limit precision loss
	// to a single truncation per step instead of compounding one.
	interest := (uint64(position.Principal) * e.fixedApy / 1_000_000) * hours / 8760

	card.Power += uint32(interest)
	card.LockedByAction = types.LockNone
	if err := e.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}
	return e.delete(category, tokenID)
}
