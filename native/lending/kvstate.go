package lending

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"cardledger/storage"
	"lukechampine.com/blake3"
)

var poolKey = []byte("lending/pool")
var borrowingIndexKey = []byte("lending/borrow/index")

// borrowingKey is the (category, tokenID) pair used by the enumeration
// container backing ListActiveBorrowings.
type borrowingKey struct {
	Category Category
	TokenID  uint64
}

// KVState is the storage.Database-backed implementation of State. Keys are
// blake3 hashes of a tagged, length-prefixed encoding of the record's
// identity so record kinds never collide in the keyspace.
type KVState struct {
	db storage.Database
}

// NewKVState wraps a storage.Database as a lending State.
func NewKVState(db storage.Database) *KVState {
	return &KVState{db: db}
}

func positionKey(tag string, category Category, tokenID uint64) []byte {
	buf := make([]byte, 0, len(tag)+1+8)
	buf = append(buf, tag...)
	buf = append(buf, byte(category))
	var tokenBytes [8]byte
	binary.BigEndian.PutUint64(tokenBytes[:], tokenID)
	buf = append(buf, tokenBytes[:]...)
	sum := blake3.Sum256(buf)
	return sum[:]
}

func userPowerKey(owner [20]byte) []byte {
	buf := make([]byte, 0, len("lending/power")+20)
	buf = append(buf, "lending/power"...)
	buf = append(buf, owner[:]...)
	sum := blake3.Sum256(buf)
	return sum[:]
}

func (s *KVState) GetPool() (PoolState, error) {
	raw, err := s.db.Get(poolKey)
	if errors.Is(err, storage.ErrNotFound) {
		return PoolState{}, nil
	}
	if err != nil {
		return PoolState{}, err
	}
	var pool PoolState
	if err := json.Unmarshal(raw, &pool); err != nil {
		return PoolState{}, err
	}
	return pool, nil
}

func (s *KVState) PutPool(pool PoolState) error {
	raw, err := json.Marshal(pool)
	if err != nil {
		return err
	}
	return s.db.Put(poolKey, raw)
}

func (s *KVState) GetLending(category Category, tokenID uint64) (*Lending, error) {
	raw, err := s.db.Get(positionKey("lending/lend", category, tokenID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lending Lending
	if err := json.Unmarshal(raw, &lending); err != nil {
		return nil, err
	}
	return &lending, nil
}

func (s *KVState) PutLending(l *Lending) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return s.db.Put(positionKey("lending/lend", l.Category, l.TokenID), raw)
}

func (s *KVState) DeleteLending(category Category, tokenID uint64) error {
	return s.db.Delete(positionKey("lending/lend", category, tokenID))
}

func (s *KVState) GetBorrowing(category Category, tokenID uint64) (*Borrowing, error) {
	raw, err := s.db.Get(positionKey("lending/borrow", category, tokenID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var borrowing Borrowing
	if err := json.Unmarshal(raw, &borrowing); err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (s *KVState) PutBorrowing(b *Borrowing) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.db.Put(positionKey("lending/borrow", b.Category, b.TokenID), raw); err != nil {
		return err
	}
	return s.addToBorrowingIndex(borrowingKey{Category: b.Category, TokenID: b.TokenID})
}

func (s *KVState) DeleteBorrowing(category Category, tokenID uint64) error {
	if err := s.db.Delete(positionKey("lending/borrow", category, tokenID)); err != nil {
		return err
	}
	return s.removeFromBorrowingIndex(borrowingKey{Category: category, TokenID: tokenID})
}

func (s *KVState) borrowingIndex() ([]borrowingKey, error) {
	raw, err := s.db.Get(borrowingIndexKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []borrowingKey
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *KVState) putBorrowingIndex(keys []borrowingKey) error {
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return s.db.Put(borrowingIndexKey, raw)
}

func (s *KVState) addToBorrowingIndex(key borrowingKey) error {
	keys, err := s.borrowingIndex()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return s.putBorrowingIndex(append(keys, key))
}

func (s *KVState) removeFromBorrowingIndex(key borrowingKey) error {
	keys, err := s.borrowingIndex()
	if err != nil {
		return err
	}
	filtered := keys[:0]
	for _, k := range keys {
		if k != key {
			filtered = append(filtered, k)
		}
	}
	return s.putBorrowingIndex(filtered)
}

// ListActiveBorrowings enumerates every open borrowing via the index
// container maintained by PutBorrowing/DeleteBorrowing.
func (s *KVState) ListActiveBorrowings() ([]*Borrowing, error) {
	keys, err := s.borrowingIndex()
	if err != nil {
		return nil, err
	}
	borrowings := make([]*Borrowing, 0, len(keys))
	for _, k := range keys {
		b, err := s.GetBorrowing(k.Category, k.TokenID)
		if err != nil {
			return nil, err
		}
		if b != nil {
			borrowings = append(borrowings, b)
		}
	}
	return borrowings, nil
}

func (s *KVState) GetUserPower(owner [20]byte) (uint64, error) {
	raw, err := s.db.Get(userPowerKey(owner))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *KVState) PutUserPower(owner [20]byte, power uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], power)
	return s.db.Put(userPowerKey(owner), buf[:])
}
