// Package card implements the card-store collaborator the lending engine
// locks and adjusts POWER on. Minting, transfer and metadata mechanics are
// out of scope here; this package only ever sees the fields the engine
// cares about.
package card

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"cardledger/core/types"
	"cardledger/storage"
	"lukechampine.com/blake3"
)

// ErrNotFound names the missing-card condition. ReadCard does not return it;
// it reports a missing card as (nil, nil).
var ErrNotFound = errors.New("card: not found")

// Store persists Card records keyed by (owner, category, token_id) over a
// storage.Database.
type Store struct {
	db storage.Database
}

// NewStore wraps a storage.Database as a card Store.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func key(owner [20]byte, category types.Category, tokenID uint64) []byte {
	buf := make([]byte, 0, len("card/")+20+1+8)
	buf = append(buf, "card/"...)
	buf = append(buf, owner[:]...)
	buf = append(buf, byte(category))
	var tokenBytes [8]byte
	binary.BigEndian.PutUint64(tokenBytes[:], tokenID)
	buf = append(buf, tokenBytes[:]...)
	sum := blake3.Sum256(buf)
	return sum[:]
}

// ReadCard implements native/lending.CardStore. A missing card returns
// (nil, nil), which the lending engine turns into its own ErrCardNotFound.
func (s *Store) ReadCard(owner [20]byte, category types.Category, tokenID uint64) (*types.Card, error) {
	raw, err := s.db.Get(key(owner, category, tokenID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var card types.Card
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// WriteCard implements native/lending.CardStore.
func (s *Store) WriteCard(owner [20]byte, category types.Category, tokenID uint64, card types.Card) error {
	raw, err := json.Marshal(card)
	if err != nil {
		return err
	}
	return s.db.Put(key(owner, category, tokenID), raw)
}

// Mint creates a fresh card at full power, unlocked. Minting mechanics
// beyond this are an explicit Non-goal; callers outside this repository
// decide when and how many cards to mint.
func (s *Store) Mint(owner [20]byte, category types.Category, tokenID uint64, power uint32) error {
	if existing, err := s.ReadCard(owner, category, tokenID); err != nil {
		return err
	} else if existing != nil {
		return errors.New("card: token id already minted for this owner/category")
	}
	return s.WriteCard(owner, category, tokenID, types.Card{Power: power, LockedByAction: types.LockNone})
}
