package storage

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/tessera-chain/tessera/pkg/types"
)

func progressKey(shardID uint64) []byte {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, shardID)
	return key
}

// GetStateSyncDumpProgress reads the persisted dump progress for a shard.
// Returns ErrNotFound when the shard has never started dumping.
func (s *Store) GetStateSyncDumpProgress(shardID uint64) (*types.DumpProgress, error) {
	data, err := s.Get(ColStateSyncDumpProgress, progressKey(shardID))
	if err != nil {
		return nil, err
	}
	return types.DecodeDumpProgress(data)
}

// SetStateSyncDumpProgress writes the dump progress for a shard. A nil
// progress deletes the record.
func (s *Store) SetStateSyncDumpProgress(shardID uint64, progress *types.DumpProgress) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ColStateSyncDumpProgress))
		if progress == nil {
			return bucket.Delete(progressKey(shardID))
		}
		data, err := types.EncodeDumpProgress(progress)
		if err != nil {
			return fmt.Errorf("failed to encode dump progress: %w", err)
		}
		return bucket.Put(progressKey(shardID), data)
	})
}
