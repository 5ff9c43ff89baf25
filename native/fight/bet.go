// Package fight implements the leveraged price-bet subsystem: a card
// stakes POWER, an external (non-oracle, injected) price delta determines a
// signed profit-or-loss, and the card is credited max(0, stake+pnl) when the
// bet resolves. Oracle sourcing of the price delta is an explicit Non-goal;
// callers supply it directly.
package fight

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"cardledger/core/types"
	"cardledger/storage"
)

var (
	errCardNotFound     = errors.New("fight: card not found")
	errCardLocked       = errors.New("fight: card is locked by another action")
	errCardNotLocked    = errors.New("fight: card is not locked by fight")
	errPositionNotFound = errors.New("fight: no open bet for this card")
	errInsufficientPower = errors.New("fight: card power is insufficient for the requested stake")
)

// CardStore is the subset of native/lending.CardStore this package needs;
// native/card.Store satisfies it structurally.
type CardStore interface {
	ReadCard(owner [20]byte, category types.Category, tokenID uint64) (*types.Card, error)
	WriteCard(owner [20]byte, category types.Category, tokenID uint64, card types.Card) error
}

// Bet is an open leveraged position: stake POWER committed, awaiting
// resolution.
type Bet struct {
	Owner    [20]byte
	Category types.Category
	TokenID  uint64
	Stake    uint32
}

func key(category types.Category, tokenID uint64) []byte {
	buf := make([]byte, 0, len("fight/")+1+8)
	buf = append(buf, "fight/"...)
	buf = append(buf, byte(category))
	var tokenBytes [8]byte
	binary.BigEndian.PutUint64(tokenBytes[:], tokenID)
	buf = append(buf, tokenBytes[:]...)
	return buf
}

// Table orchestrates Open/Resolve over a card store and a key-value
// database.
type Table struct {
	db    storage.Database
	cards CardStore
}

// NewTable constructs a fight table.
func NewTable(db storage.Database, cards CardStore) *Table {
	return &Table{db: db, cards: cards}
}

func (t *Table) get(category types.Category, tokenID uint64) (*Bet, error) {
	raw, err := t.db.Get(key(category, tokenID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b Bet
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *Table) put(b *Bet) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return t.db.Put(key(b.Category, b.TokenID), raw)
}

func (t *Table) delete(category types.Category, tokenID uint64) error {
	return t.db.Delete(key(category, tokenID))
}

// Open locks a card and commits stake POWER to an open bet.
func (t *Table) Open(caller [20]byte, category types.Category, tokenID uint64, stake uint32) error {
	card, err := t.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return errCardNotFound
	}
	if card.LockedByAction != types.LockNone {
		return errCardLocked
	}
	if card.Power < stake {
		return errInsufficientPower
	}
	if existing, err := t.get(category, tokenID); err != nil {
		return err
	} else if existing != nil {
		return errors.New("fight: a bet is already open for this card")
	}

	card.Power -= stake
	card.LockedByAction = types.LockFight
	if err := t.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}
	return t.put(&Bet{Owner: caller, Category: category, TokenID: tokenID, Stake: stake})
}

// Resolve settles an open bet against a signed profit-or-loss delta (in
// POWER units) and credits max(0, stake+pnl) back to the card. A loss that
// exceeds the stake clamps to zero rather than going negative — card POWER
// is unsigned throughout this repository.
func (t *Table) Resolve(category types.Category, tokenID uint64, pnl int64) (uint64, error) {
	bet, err := t.get(category, tokenID)
	if err != nil {
		return 0, err
	}
	if bet == nil {
		return 0, errPositionNotFound
	}
	card, err := t.cards.ReadCard(bet.Owner, category, tokenID)
	if err != nil {
		return 0, err
	}
	if card == nil {
		return 0, errCardNotFound
	}
	if card.LockedByAction != types.LockFight {
		return 0, errCardNotLocked
	}

	settled := int64(bet.Stake) + pnl
	var payout uint64
	if settled > 0 {
		payout = uint64(settled)
	}

	if payout > uint32max {
		payout = uint32max
	}
	card.Power = saturatingAddU32(card.Power, uint32(payout))
	card.LockedByAction = types.LockNone
	if err := t.cards.WriteCard(bet.Owner, category, tokenID, *card); err != nil {
		return 0, err
	}
	if err := t.delete(category, tokenID); err != nil {
		return 0, err
	}
	return payout, nil
}

const uint32max = 1<<32 - 1

// saturatingAddU32 clamps at uint32 max instead of wrapping.
func saturatingAddU32(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > uint32max {
		return uint32max
	}
	return uint32(sum)
}
