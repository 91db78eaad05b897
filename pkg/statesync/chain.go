package statesync

import (
	"github.com/tessera-chain/tessera/pkg/types"
)

// Tip is the head of the chain as seen by a dumper.
type Tip struct {
	LastBlockHash types.Hash
	EpochID       types.EpochID
}

// BlockHeader carries the header fields the dump state machine needs.
type BlockHeader struct {
	Hash           types.Hash
	PrevHash       types.Hash
	EpochID        types.EpochID
	LastFinalBlock types.Hash
}

// StateResponseHeader describes a shard's state at a sync point.
type StateResponseHeader struct {
	StateRoot types.Hash
	// StateRootNodeMemoryUsage sizes the state, which determines how many
	// parts it splits into.
	StateRootNodeMemoryUsage uint64
}

// Chain is a read-only view of the block chain. A Chain value is not safe
// for concurrent use; each dumper task owns its own view.
type Chain interface {
	Head() (*Tip, error)
	BlockHeader(hash types.Hash) (*BlockHeader, error)
	StateResponseHeader(shardID uint64, syncHash types.Hash) (*StateResponseHeader, error)
	// EpochStartSyncHash resolves the sync hash pinning the epoch that
	// contains blockHash: the hash of the first block of its epoch.
	EpochStartSyncHash(blockHash types.Hash) (types.Hash, error)
}

// EpochInfo carries per-epoch metadata.
type EpochInfo struct {
	EpochHeight uint64
}

// EpochManager resolves epoch metadata.
type EpochManager interface {
	EpochInfo(epochID types.EpochID) (*EpochInfo, error)
	NumShards(epochID types.EpochID) (uint64, error)
}

// ShardTracker decides which shards this node tracks.
type ShardTracker interface {
	// CareAboutShard reports whether accountID tracks shardID in the epoch
	// that parentHash's next block belongs to. An empty accountID means
	// the node runs without a validator identity.
	CareAboutShard(accountID types.AccountID, parentHash types.Hash, shardID uint64, isMe bool) bool
}

// Runtime materializes state parts.
type Runtime interface {
	// ObtainStatePart produces the bytes of part partID of numParts for
	// the shard state rooted at stateRoot as of prevHash.
	ObtainStatePart(shardID uint64, prevHash types.Hash, stateRoot types.Hash, partID, numParts uint64) ([]byte, error)
}

// statePartSizeBytes is the target size of one state part.
const statePartSizeBytes = 16 * 1024 * 1024

// GetNumStateParts derives the part count from the state's memory usage.
// Even an empty state has one part.
func GetNumStateParts(memoryUsage uint64) uint64 {
	numParts := (memoryUsage + statePartSizeBytes - 1) / statePartSizeBytes
	if numParts == 0 {
		return 1
	}
	return numParts
}
