package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sliceledger/core"
	"sliceledger/core/types"
)

func TestArchiveBlockRoundTrip(t *testing.T) {
	archive := NewArchive(NewMemDB())

	block := types.Block{
		Index:     3,
		Timestamp: "2026-01-02T03:04:05Z",
		Payload:   map[string]any{"merkle_root": "abc"},
		PrevHash:  "00aa",
		Nonce:     7,
		Hash:      "00bb",
	}
	require.NoError(t, archive.PutBlock(block))

	got, err := archive.Block(3)
	require.NoError(t, err)
	require.Equal(t, block.Hash, got.Hash)
	require.Equal(t, block.Nonce, got.Nonce)

	_, err = archive.Block(99)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestArchivePutBlockOverwritesSnapshot(t *testing.T) {
	archive := NewArchive(NewMemDB())

	block := types.Block{Index: 1, Hash: "before"}
	require.NoError(t, archive.PutBlock(block))
	block.Hash = "after"
	require.NoError(t, archive.PutBlock(block))

	got, err := archive.Block(1)
	require.NoError(t, err)
	require.Equal(t, "after", got.Hash)
}

func TestArchiveRepairHistoryKeepsOrder(t *testing.T) {
	archive := NewArchive(NewMemDB())

	first := core.RepairRecord{
		Timestamp:       "2026-01-02T03:04:05Z",
		Reason:          core.RepairReason,
		AffectedIndices: []uint64{1},
	}
	second := core.RepairRecord{
		Timestamp: "2026-01-02T03:05:05Z",
		Reason:    core.RepairReason,
		KeysReset: true,
	}
	require.NoError(t, archive.AppendRepair(first))
	require.NoError(t, archive.AppendRepair(second))

	records, err := archive.Repairs()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, first.AffectedIndices, records[0].AffectedIndices)
	require.True(t, records[1].KeysReset)
}

func TestArchiveRepairsEmptyHistory(t *testing.T) {
	archive := NewArchive(NewMemDB())
	records, err := archive.Repairs()
	require.NoError(t, err)
	require.Empty(t, records)
}
