// Package deck implements four-card deck assembly and the periodic
// reward-pot distribution: each active deck's share of a pot distribution
// is proportional to its aggregate POWER among all active decks.
package deck

import (
	"encoding/json"
	"errors"

	"cardledger/core/types"
	"cardledger/native/rewards"
	"cardledger/storage"
)

const deckSize = 4

var (
	errCardNotFound  = errors.New("deck: card not found")
	errCardLocked    = errors.New("deck: card is locked by another action")
	errDeckNotFound  = errors.New("deck: no such deck")
	errNotAuthorized = errors.New("deck: caller does not own this deck")
)

var indexKey = []byte("deck/index")

// CardRef identifies one of a deck's four member cards.
type CardRef struct {
	Owner    [20]byte
	Category types.Category
	TokenID  uint64
}

// CardStore is the subset of native/lending.CardStore this package needs;
// native/card.Store satisfies it structurally.
type CardStore interface {
	ReadCard(owner [20]byte, category types.Category, tokenID uint64) (*types.Card, error)
	WriteCard(owner [20]byte, category types.Category, tokenID uint64, card types.Card) error
}

// Deck is an assembled group of four unlocked cards, locked LockDeck as a
// unit until disassembled.
type Deck struct {
	ID      string
	Owner   [20]byte
	Members [deckSize]CardRef
	Power   uint64
}

// Assembly orchestrates deck lifecycle and periodic pot distribution over a
// card store, a storage.Database for deck records, and the reward minter
// lending/borrowing also use.
type Assembly struct {
	db      storage.Database
	cards   CardStore
	rewards *rewards.Minter
}

// NewAssembly constructs a deck assembly.
func NewAssembly(db storage.Database, cards CardStore, minter *rewards.Minter) *Assembly {
	return &Assembly{db: db, cards: cards, rewards: minter}
}

func deckKey(id string) []byte {
	return append([]byte("deck/"), id...)
}

func (a *Assembly) get(id string) (*Deck, error) {
	raw, err := a.db.Get(deckKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d Deck
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (a *Assembly) put(d *Deck) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return a.db.Put(deckKey(d.ID), raw)
}

func (a *Assembly) index() ([]string, error) {
	raw, err := a.db.Get(indexKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *Assembly) putIndex(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.db.Put(indexKey, raw)
}

func (a *Assembly) addToIndex(id string) error {
	ids, err := a.index()
	if err != nil {
		return err
	}
	return a.putIndex(append(ids, id))
}

func (a *Assembly) removeFromIndex(id string) error {
	ids, err := a.index()
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	return a.putIndex(filtered)
}

// Assemble locks exactly four unlocked cards into a new deck identified by
// id (caller-supplied so it can be derived deterministically, e.g. from the
// owner and a nonce).
func (a *Assembly) Assemble(id string, owner [20]byte, members [deckSize]CardRef) error {
	var power uint64
	for _, ref := range members {
		card, err := a.cards.ReadCard(ref.Owner, ref.Category, ref.TokenID)
		if err != nil {
			return err
		}
		if card == nil {
			return errCardNotFound
		}
		if card.LockedByAction != types.LockNone {
			return errCardLocked
		}
		power += uint64(card.Power)
	}
	for _, ref := range members {
		card, err := a.cards.ReadCard(ref.Owner, ref.Category, ref.TokenID)
		if err != nil {
			return err
		}
		card.LockedByAction = types.LockDeck
		if err := a.cards.WriteCard(ref.Owner, ref.Category, ref.TokenID, *card); err != nil {
			return err
		}
	}
	deck := &Deck{ID: id, Owner: owner, Members: members, Power: power}
	if err := a.put(deck); err != nil {
		return err
	}
	return a.addToIndex(id)
}

// Disassemble unlocks a deck's four cards and deletes the deck record.
func (a *Assembly) Disassemble(caller [20]byte, id string) error {
	deck, err := a.get(id)
	if err != nil {
		return err
	}
	if deck == nil {
		return errDeckNotFound
	}
	if deck.Owner != caller {
		return errNotAuthorized
	}
	for _, ref := range deck.Members {
		card, err := a.cards.ReadCard(ref.Owner, ref.Category, ref.TokenID)
		if err != nil {
			return err
		}
		if card == nil {
			continue
		}
		card.LockedByAction = types.LockNone
		if err := a.cards.WriteCard(ref.Owner, ref.Category, ref.TokenID, *card); err != nil {
			return err
		}
	}
	if err := a.db.Delete(deckKey(id)); err != nil {
		return err
	}
	return a.removeFromIndex(id)
}

// DistributePot shares potBalance across every active deck proportionally
// to deck_power / total_active_deck_power, minting each owner's share via
// the shared rewards.Minter. The caller supplies potBalance; nothing in
// cmd/cardledgerd calls this method.
func (a *Assembly) DistributePot(potBalance uint64) error {
	if potBalance == 0 {
		return nil
	}
	ids, err := a.index()
	if err != nil {
		return err
	}
	var totalPower uint64
	decks := make([]*Deck, 0, len(ids))
	for _, id := range ids {
		d, err := a.get(id)
		if err != nil {
			return err
		}
		if d == nil {
			continue
		}
		decks = append(decks, d)
		totalPower += d.Power
	}
	if totalPower == 0 {
		return nil
	}
	for _, d := range decks {
		share := d.Power * potBalance / totalPower
		if share == 0 {
			continue
		}
		a.rewards.MintReward(d.Owner, share)
	}
	return nil
}
