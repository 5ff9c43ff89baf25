// Package rewards implements the reward-minter collaborator: a
// fire-and-forget "terry" token credit per lending operation, plus the
// haw_ai_terry side accumulator described in the glossary. The lending
// engine never reads back what this package returns.
package rewards

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cardledger/storage"
	"github.com/google/uuid"
)

var hawAiKey = []byte("rewards/haw_ai_terry")

// Receipt records a single mint for audit purposes (e.g. the reporting
// read-model). MintReward stamps MintedAtUnix from the Minter's clock
// (time.Now unless SetClock replaced it).
type Receipt struct {
	ID      string `json:"id"`
	Owner   [20]byte `json:"owner"`
	Amount  uint64 `json:"amount"`
	MintedAtUnix int64 `json:"mintedAt"`
}

// Minter implements native/lending.RewardMinter over a balance ledger and a
// receipt log, both backed by storage.Database.
type Minter struct {
	mu  sync.Mutex
	db  storage.Database
	now func() time.Time
}

// NewMinter wraps a storage.Database as a reward Minter. now defaults to
// time.Now; tests may override it via SetClock.
func NewMinter(db storage.Database) *Minter {
	return &Minter{db: db, now: time.Now}
}

// SetClock overrides the minter's time source, for deterministic tests.
func (m *Minter) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	m.now = now
}

func balanceKey(owner [20]byte) []byte {
	buf := make([]byte, 0, len("rewards/terry/")+20)
	buf = append(buf, "rewards/terry/"...)
	buf = append(buf, owner[:]...)
	return buf
}

func receiptKey(id string) []byte {
	return append([]byte("rewards/receipt/"), id...)
}

// MintReward implements native/lending.RewardMinter. It credits owner's
// terry balance and appends a receipt keyed by a fresh UUID.
func (m *Minter) MintReward(owner [20]byte, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.readUint64(balanceKey(owner))
	m.writeUint64(balanceKey(owner), balance+amount)

	receipt := Receipt{ID: uuid.NewString(), Owner: owner, Amount: amount, MintedAtUnix: m.now().Unix()}
	raw, err := json.Marshal(receipt)
	if err != nil {
		return
	}
	_ = m.db.Put(receiptKey(receipt.ID), raw)
}

// BumpHawAi implements native/lending.RewardMinter's side-accumulator half.
func (m *Minter) BumpHawAi(owner [20]byte, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.readUint64(hawAiKey)
	m.writeUint64(hawAiKey, total+amount)
}

// Balance returns owner's accumulated terry balance.
func (m *Minter) Balance(owner [20]byte) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readUint64(balanceKey(owner))
}

// HawAiTerry returns the process-wide haw_ai_terry side accumulator.
func (m *Minter) HawAiTerry() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readUint64(hawAiKey)
}

func (m *Minter) readUint64(k []byte) uint64 {
	raw, err := m.db.Get(k)
	if errors.Is(err, storage.ErrNotFound) || len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func (m *Minter) writeUint64(k []byte, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_ = m.db.Put(k, buf[:])
}
