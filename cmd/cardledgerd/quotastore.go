package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"cardledger/native/common"
	"cardledger/storage"
)

// quotaStore adapts storage.Database to native/common.Store so the daemon
// can enforce a per-caller, per-epoch request cap on top of the token-bucket
// limiter in front of it. quotaMiddleware charges one request and zero POWER
// per call, so the quota's POWER-volume limit never engages. The token
// bucket smooths bursts;
// this catches a caller who stays under the bucket but hammers the API all
// epoch long.
type quotaStore struct {
	db storage.Database
}

func newQuotaStore(db storage.Database) *quotaStore {
	return &quotaStore{db: db}
}

func quotaKey(module string, epoch uint64, addr []byte) []byte {
	return []byte(fmt.Sprintf("quota/%s/%d/%x", module, epoch, addr))
}

func (s *quotaStore) Load(module string, epoch uint64, addr []byte) (common.QuotaNow, bool, error) {
	raw, err := s.db.Get(quotaKey(module, epoch, addr))
	if errors.Is(err, storage.ErrNotFound) {
		return common.QuotaNow{}, false, nil
	}
	if err != nil {
		return common.QuotaNow{}, false, err
	}
	var now common.QuotaNow
	if err := json.Unmarshal(raw, &now); err != nil {
		return common.QuotaNow{}, false, err
	}
	return now, true, nil
}

func (s *quotaStore) Save(module string, epoch uint64, addr []byte, counters common.QuotaNow) error {
	raw, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	return s.db.Put(quotaKey(module, epoch, addr), raw)
}
