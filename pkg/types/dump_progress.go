package types

import (
	"encoding/json"
	"fmt"
)

// DumpProgressKind discriminates the persisted dump progress states.
type DumpProgressKind string

const (
	// DumpInProgress means parts of the named epoch are still being
	// uploaded.
	DumpInProgress DumpProgressKind = "in_progress"
	// DumpAllDumped means every part of the named epoch has been uploaded.
	DumpAllDumped DumpProgressKind = "all_dumped"
)

// DumpProgress is the persisted per-shard state of the state sync dump state
// machine. An absent record is equivalent to "never started".
type DumpProgress struct {
	Kind        DumpProgressKind `json:"kind"`
	EpochID     EpochID          `json:"epoch_id"`
	EpochHeight uint64           `json:"epoch_height"`
	// SyncHash pins the state snapshot; only meaningful while in progress.
	SyncHash Hash `json:"sync_hash"`
	// NumParts is the part count of the finished epoch; only meaningful
	// once all parts are dumped.
	NumParts uint64 `json:"num_parts"`
}

// InProgress builds the in-progress state.
func InProgress(epochID EpochID, epochHeight uint64, syncHash Hash) *DumpProgress {
	return &DumpProgress{
		Kind:        DumpInProgress,
		EpochID:     epochID,
		EpochHeight: epochHeight,
		SyncHash:    syncHash,
	}
}

// AllDumped builds the all-dumped state.
func AllDumped(epochID EpochID, epochHeight uint64, numParts uint64) *DumpProgress {
	return &DumpProgress{
		Kind:        DumpAllDumped,
		EpochID:     epochID,
		EpochHeight: epochHeight,
		NumParts:    numParts,
	}
}

// EncodeDumpProgress serializes p for the progress column.
func EncodeDumpProgress(p *DumpProgress) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeDumpProgress parses a progress column row.
func DecodeDumpProgress(data []byte) (*DumpProgress, error) {
	var p DumpProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid dump progress: %v", ErrDecode, err)
	}
	switch p.Kind {
	case DumpInProgress, DumpAllDumped:
		return &p, nil
	default:
		return nil, fmt.Errorf("%w: unknown dump progress kind %q", ErrDecode, p.Kind)
	}
}

func (p *DumpProgress) String() string {
	if p == nil {
		return "<none>"
	}
	switch p.Kind {
	case DumpInProgress:
		return fmt.Sprintf("in_progress{epoch_height: %d, sync_hash: %s}", p.EpochHeight, p.SyncHash)
	case DumpAllDumped:
		return fmt.Sprintf("all_dumped{epoch_height: %d, num_parts: %d}", p.EpochHeight, p.NumParts)
	default:
		return string(p.Kind)
	}
}
