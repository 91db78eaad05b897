package flatstate

import (
	"fmt"
	"time"

	"github.com/tessera-chain/tessera/pkg/log"
	"github.com/tessera-chain/tessera/pkg/metrics"
	"github.com/tessera-chain/tessera/pkg/storage"
	"github.com/tessera-chain/tessera/pkg/types"
)

// InlineFlatStateValues rewrites every FlatState reference whose value is at
// most types.InlineDiskValueThreshold bytes into its inlined form.
//
// The migration is safe to run while blocks are being processed: per batch
// it scans with updates live, resolves the referenced bytes in parallel on
// readStateThreads workers, then pauses FlatState updates only for the
// re-read and commit of that batch. The re-read guarantees we only rewrite
// references that are still present; values replaced by block processing
// since the scan are left alone.
//
// Per-entry failures are logged and skipped. Only a failed commit aborts the
// migration.
func InlineFlatStateValues(store *storage.Store, manager *FlatStorageManager, readStateThreads, batchSize int) error {
	logger := log.WithComponent("inlining_migration")
	logger.Info().
		Int("read_state_threads", readStateThreads).
		Int("batch_size", batchSize).
		Msg("Starting FlatState value inlining migration")
	migrationStart := time.Now()

	valueReader := NewStateValueReader(store, readStateThreads)
	defer valueReader.Close()

	inlinedTotalCount := 0
	batchIndex := 0
	var minKey, maxKey []byte
	batchLen := 0

	flush := func() error {
		hashToValue := valueReader.ReceiveAll()
		inlinedBatchCount := 0
		var batchDuration time.Duration
		if len(hashToValue) > 0 {
			// Re-read the latest values in [minKey, maxKey] while updates
			// are paused, so that entries replaced since the scan keep
			// their current value.
			batchInliningStart := time.Now()
			manager.SetFlatStateUpdatesMode(false)
			defer manager.SetFlatStateUpdatesMode(true)

			update := store.NewBatch()
			// The range end is exclusive, so append 0x00 to make sure
			// maxKey itself is included.
			upperBoundKey := append(append([]byte(nil), maxKey...), 0x00)
			it := store.IterRange(storage.ColFlatState, minKey, upperBoundKey)
			for it.Next() {
				value, err := types.DecodeFlatStateValue(it.Value())
				if err != nil {
					continue
				}
				ref, ok := value.(types.RefValue)
				if !ok {
					continue
				}
				bytes, ok := hashToValue[ref.Hash]
				if !ok {
					continue
				}
				update.Set(storage.ColFlatState, it.Key(), types.EncodeFlatStateValue(types.Inlined(bytes)))
				inlinedBatchCount++
				metrics.FlatStateInliningInlinedCount.Inc()
			}
			if err := it.Error(); err != nil {
				logSkipped("iterator error during re-read", err)
			}
			it.Release()
			if err := update.Commit(); err != nil {
				return fmt.Errorf("failed to commit inlined values: %w", err)
			}
			inlinedTotalCount += inlinedBatchCount
			batchDuration = time.Since(batchInliningStart)
			metrics.FlatStatePausedDuration.Observe(batchDuration.Seconds())
		}
		logger.Debug().
			Int("batch_index", batchIndex).
			Int("inlined_batch_count", inlinedBatchCount).
			Int("inlined_total_count", inlinedTotalCount).
			Dur("batch_duration", batchDuration).
			Msg("Processed flat state value inlining batch")
		batchIndex++
		minKey, maxKey = nil, nil
		batchLen = 0
		return nil
	}

	it := store.Iter(storage.ColFlatState)
	defer it.Release()
	for it.Next() {
		metrics.FlatStateInliningProcessedCount.Inc()
		key, value := it.Key(), it.Value()

		shardUID, _, err := types.DecodeFlatStateKey(key)
		if err != nil {
			logSkipped("failed to decode FlatState key", err)
			continue
		}
		fsValue, err := types.DecodeFlatStateValue(value)
		if err != nil {
			logSkipped("failed to deserialise FlatState value", err)
			continue
		}
		metrics.FlatStateInliningProcessedTotalValuesSize.Add(float64(fsValue.Size()))
		if ref, ok := fsValue.(types.RefValue); ok && ref.Length <= types.InlineDiskValueThreshold {
			if minKey == nil {
				minKey = append([]byte(nil), key...)
			}
			maxKey = append([]byte(nil), key...)
			metrics.FlatStateInliningInlinedTotalValuesSize.Add(float64(fsValue.Size()))
			valueReader.Submit(shardUID, ref.Hash)
		}

		batchLen++
		if batchLen == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := it.Error(); err != nil {
		logSkipped("storage iterator error", err)
	}
	if batchLen > 0 || minKey != nil {
		if err := flush(); err != nil {
			return err
		}
	}

	logger.Info().
		Int("inlined_total_count", inlinedTotalCount).
		Dur("migration_elapsed", time.Since(migrationStart)).
		Msg("Finished FlatState value inlining migration")
	return nil
}

func logSkipped(reason string, err error) {
	log.WithComponent("inlining_migration").Debug().
		Str("reason", reason).
		Err(err).
		Msg("Skipped value during FlatState inlining")
	metrics.FlatStateInliningSkippedCount.Inc()
}
