package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"sliceledger/core"
	"sliceledger/core/types"
)

const (
	blockKeyPrefix  = "block/"
	repairKeyPrefix = "repair/"
	repairCountKey  = "repair/count"
)

// Archive records sealed-block summaries and repair events outside the
// ledger core. It is an observer: the core never reads it back, so a lost
// archive cannot corrupt the chain, and the core itself stays free of
// durable state.
type Archive struct {
	mu sync.Mutex
	db Database
}

// NewArchive returns an archive writing to db.
func NewArchive(db Database) *Archive {
	return &Archive{db: db}
}

// PutBlock stores a snapshot of a sealed block keyed by index. Re-sealed
// blocks overwrite their previous snapshot.
func (a *Archive) PutBlock(block types.Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("archive block %d: %w", block.Index, err)
	}
	return a.db.Put([]byte(blockKeyPrefix+strconv.FormatUint(block.Index, 10)), raw)
}

// Block loads the archived snapshot for index.
func (a *Archive) Block(index uint64) (*types.Block, error) {
	raw, err := a.db.Get([]byte(blockKeyPrefix + strconv.FormatUint(index, 10)))
	if err != nil {
		return nil, err
	}
	var block types.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// AppendRepair stores a repair record at the next sequence number.
func (a *Archive) AppendRepair(record core.RepairRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	count, err := a.repairCount()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive repair record: %w", err)
	}
	if err := a.db.Put([]byte(repairKeyPrefix+strconv.FormatUint(count, 10)), raw); err != nil {
		return err
	}
	return a.db.Put([]byte(repairCountKey), []byte(strconv.FormatUint(count+1, 10)))
}

// Repairs loads the full repair history, oldest first.
func (a *Archive) Repairs() ([]core.RepairRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	count, err := a.repairCount()
	if err != nil {
		return nil, err
	}
	records := make([]core.RepairRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := a.db.Get([]byte(repairKeyPrefix + strconv.FormatUint(i, 10)))
		if err != nil {
			return nil, err
		}
		var record core.RepairRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (a *Archive) repairCount() (uint64, error) {
	raw, err := a.db.Get([]byte(repairCountKey))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(raw), 10, 64)
}
