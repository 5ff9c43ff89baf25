// Package pot implements the fee-pot accumulator collaborator: a sink for
// the POWER skimmed off lend/borrow fees, tracked both as a single running
// total and broken down per action.
package pot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"

	"cardledger/storage"
)

var (
	totalKey     = []byte("pot/total")
	breakdownKey = []byte("pot/breakdown")
)

// Accumulator implements native/lending.PotAccumulator and exposes the
// running balance through Total and Drain.
type Accumulator struct {
	mu sync.Mutex
	db storage.Database
}

// NewAccumulator wraps a storage.Database as a pot Accumulator.
func NewAccumulator(db storage.Database) *Accumulator {
	return &Accumulator{db: db}
}

// Accumulate implements native/lending.PotAccumulator. The owner argument is
// accepted for symmetry with the interface but is not itself tracked — the
// pot is a single shared resource, not a per-player ledger.
func (a *Accumulator) Accumulate(owner [20]byte, action string, fee uint32) {
	if a == nil || fee == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.readUint64(totalKey)
	total += uint64(fee)
	a.writeUint64(totalKey, total)

	breakdown := a.readBreakdown()
	breakdown[action] += uint64(fee)
	a.writeBreakdown(breakdown)
}

// Total returns the pot's current undistributed balance.
func (a *Accumulator) Total() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readUint64(totalKey)
}

// Breakdown returns the per-action accumulation since the last reset.
func (a *Accumulator) Breakdown() map[string]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readBreakdown()
}

// Drain zeroes the pot and its per-action breakdown and returns the total
// that was in it.
func (a *Accumulator) Drain() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.readUint64(totalKey)
	a.writeUint64(totalKey, 0)
	a.writeBreakdown(map[string]uint64{})
	return total
}

func (a *Accumulator) readUint64(k []byte) uint64 {
	raw, err := a.db.Get(k)
	if errors.Is(err, storage.ErrNotFound) || len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func (a *Accumulator) writeUint64(k []byte, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_ = a.db.Put(k, buf[:])
}

func (a *Accumulator) readBreakdown() map[string]uint64 {
	raw, err := a.db.Get(breakdownKey)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]uint64{}
	}
	var breakdown map[string]uint64
	if err := json.Unmarshal(raw, &breakdown); err != nil {
		return map[string]uint64{}
	}
	return breakdown
}

func (a *Accumulator) writeBreakdown(breakdown map[string]uint64) {
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return
	}
	_ = a.db.Put(breakdownKey, raw)
}
