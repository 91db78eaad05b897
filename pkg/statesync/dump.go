package statesync

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tessera-chain/tessera/pkg/external"
	"github.com/tessera-chain/tessera/pkg/metrics"
	"github.com/tessera-chain/tessera/pkg/storage"
	"github.com/tessera-chain/tessera/pkg/types"
)

// StateDumpIterationTimeLimit bounds one pass of the inner part-dumping
// loop; after it elapses the loop re-persists its progress and yields.
const StateDumpIterationTimeLimit = 300 * time.Second

type dumper struct {
	shardID        uint64
	chain          Chain
	epochManager   EpochManager
	shardTracker   ShardTracker
	runtime        Runtime
	store          *storage.Store
	chainID        string
	external       external.Connection
	iterationDelay time.Duration
	accountID      types.AccountID
	keepRunning    *atomic.Bool
	logger         zerolog.Logger
	ctx            context.Context
}

// run drives the per-shard state machine until the supervisor stops it.
// Each iteration reads the persisted progress, dispatches on it, and
// records the resulting transition, if any. Iterations without a
// transition sleep iterationDelay to avoid a busy loop.
func (d *dumper) run() {
	d.logger.Info().Msg("Running StateSyncDump loop")

	for d.keepRunning.Load() {
		progress, err := d.store.GetStateSyncDumpProgress(d.shardID)
		d.logger.Debug().Stringer("progress", progress).Msg("Running StateSyncDump loop iteration")

		var next *types.DumpProgress
		var dispatchErr error
		switch {
		case err == nil && progress.Kind == types.DumpAllDumped:
			// The latest epoch was dumped. Check if a newer epoch is
			// available.
			next, dispatchErr = d.checkNewEpoch(progress)
		case errors.Is(err, storage.ErrNotFound) || errors.Is(err, types.ErrDecode):
			// First invocation of this state machine. See if at least one
			// epoch is available for dumping.
			next, dispatchErr = d.checkNewEpoch(nil)
		case err != nil:
			d.logger.Warn().Err(err).Msg("Failed to read the progress, will now delete and retry")
			if err := d.store.SetStateSyncDumpProgress(d.shardID, nil); err != nil {
				d.logger.Warn().Err(err).Msg("and failed to delete the progress. Will later retry.")
			}
		default:
			next, dispatchErr = d.continueDumping(progress)
		}

		hasProgress := false
		switch {
		case dispatchErr != nil:
			// Will retry.
			d.logger.Debug().Err(dispatchErr).Msg("Failed to determine what to do")
		case next != nil:
			d.logger.Debug().Stringer("next_state", next).Msg("Recording dump progress")
			if err := d.store.SetStateSyncDumpProgress(d.shardID, next); err != nil {
				// This will be retried.
				d.logger.Debug().Err(err).Msg("Failed to set progress")
			} else {
				hasProgress = true
			}
		default:
			// Will retry.
			d.logger.Debug().Msg("Idle")
		}

		if !hasProgress {
			// Avoid a busy-loop when there is nothing to do.
			time.Sleep(d.iterationDelay)
		}
	}
	d.logger.Debug().Msg("Stopped state dump thread")
}

// checkNewEpoch determines whether an epoch newer than the last fully
// dumped one is available. lastDumped is nil on the first invocation.
func (d *dumper) checkNewEpoch(lastDumped *types.DumpProgress) (*types.DumpProgress, error) {
	head, err := d.chain.Head()
	if err != nil {
		return nil, err
	}
	if lastDumped != nil && head.EpochID == lastDumped.EpochID {
		d.setMetrics(&lastDumped.NumParts, &lastDumped.NumParts, &lastDumped.EpochHeight)
		return nil, nil
	}
	// Check if the final block is now in the next epoch.
	d.logger.Debug().Msg("Check if a new complete epoch is available")
	header, err := d.chain.BlockHeader(head.LastBlockHash)
	if err != nil {
		return nil, err
	}
	syncHash, err := d.chain.EpochStartSyncHash(header.LastFinalBlock)
	if err != nil {
		return nil, err
	}
	syncHeader, err := d.chain.BlockHeader(syncHash)
	if err != nil {
		return nil, err
	}
	if lastDumped != nil && syncHeader.EpochID == lastDumped.EpochID {
		// Still in the latest dumped epoch. Do nothing.
		return nil, nil
	}
	return d.startDumping(head.EpochID, syncHash)
}

// startDumping gathers basic information about the epoch to be dumped and
// produces its initial progress state.
func (d *dumper) startDumping(epochID types.EpochID, syncHash types.Hash) (*types.DumpProgress, error) {
	epochInfo, err := d.epochManager.EpochInfo(epochID)
	if err != nil {
		return nil, err
	}
	epochHeight := epochInfo.EpochHeight

	syncHeader, err := d.chain.BlockHeader(syncHash)
	if err != nil {
		return nil, err
	}
	syncPrevHeader, err := d.chain.BlockHeader(syncHeader.PrevHash)
	if err != nil {
		return nil, err
	}
	// The completed epoch must have a shard this account cares about.
	// sync_hash is the first block of the next epoch; CareAboutShard takes
	// a parent hash, so the prev-prev hash makes its next block the last
	// block of the completed epoch, which is what we want.
	syncPrevPrevHash := syncPrevHeader.PrevHash

	stateHeader, err := d.chain.StateResponseHeader(d.shardID, syncHash)
	if err != nil {
		return nil, err
	}
	numParts := GetNumStateParts(stateHeader.StateRootNodeMemoryUsage)
	if !d.shardTracker.CareAboutShard(d.accountID, syncPrevPrevHash, d.shardID, true) {
		d.logger.Info().
			Stringer("epoch_id", epochID).
			Stringer("sync_hash", syncHash).
			Msg("Shard is not tracked, skip the epoch")
		return types.AllDumped(epochID, epochHeight, 0), nil
	}
	d.logger.Info().
		Stringer("epoch_id", epochID).
		Stringer("sync_hash", syncHash).
		Msg("Initialize dumping state of Epoch")
	// The progress is recorded as InProgress first; parts start uploading
	// on the next tick.
	zero := uint64(0)
	d.setMetrics(&zero, &numParts, &epochHeight)
	return types.InProgress(epochID, epochHeight, syncHash), nil
}

// continueDumping uploads missing parts of the in-progress epoch and
// returns the resulting progress state.
func (d *dumper) continueDumping(progress *types.DumpProgress) (*types.DumpProgress, error) {
	stateRoot, numParts, syncPrevHash, err := d.inProgressData(progress.SyncHash)
	if err != nil {
		return nil, err
	}
	partsToDump, err := d.missingPartIDs(progress.EpochID, progress.EpochHeight, numParts)
	if err != nil {
		d.logger.Debug().Err(err).Msg("Failed to list already dumped state parts")
		return nil, fmt.Errorf("failed to list dumped state parts: %w", err)
	}
	if len(partsToDump) == 0 {
		return types.AllDumped(progress.EpochID, progress.EpochHeight, numParts), nil
	}

	timer := time.Now()
	for d.keepRunning.Load() &&
		time.Since(timer) <= StateDumpIterationTimeLimit &&
		len(partsToDump) > 0 {
		iterationTimer := prometheus.NewTimer(
			metrics.StateSyncDumpIterationElapsed.WithLabelValues(d.shardLabel()))

		selectedIdx := rand.IntN(len(partsToDump))
		partID := partsToDump[selectedIdx]
		d.logger.Debug().Uint64("part_id", partID).Msg("Selected part to dump")

		statePart, err := d.obtainAndStoreStatePart(progress.SyncHash, syncPrevHash, stateRoot, partID, numParts)
		if err != nil {
			// Local materialization failure may indicate the state is
			// temporarily unavailable; give up on this pass.
			d.logger.Warn().
				Uint64("epoch_height", progress.EpochHeight).
				Uint64("part_id", partID).
				Err(err).
				Msg("Failed to obtain and store part. Will skip this part.")
			iterationTimer.ObserveDuration()
			break
		}
		location := external.Location(d.chainID, progress.EpochID, progress.EpochHeight, d.shardID, partID, numParts)
		if err := d.external.PutStatePart(d.ctx, statePart, d.shardID, location); err != nil {
			// Keep dumping other parts; the random draw revisits this one
			// on a later pass.
			iterationTimer.ObserveDuration()
			continue
		}

		// Remove the dumped part so that we draw without replacement.
		partsToDump[selectedIdx] = partsToDump[len(partsToDump)-1]
		partsToDump = partsToDump[:len(partsToDump)-1]
		d.updateDumpedSizeAndCountMetrics(progress.EpochHeight, len(statePart))
		iterationTimer.ObserveDuration()
	}

	if len(partsToDump) == 0 {
		return types.AllDumped(progress.EpochID, progress.EpochHeight, numParts), nil
	}
	return types.InProgress(progress.EpochID, progress.EpochHeight, progress.SyncHash), nil
}

// inProgressData extracts the extra data needed for obtaining state parts.
func (d *dumper) inProgressData(syncHash types.Hash) (types.Hash, uint64, types.Hash, error) {
	stateHeader, err := d.chain.StateResponseHeader(d.shardID, syncHash)
	if err != nil {
		return types.Hash{}, 0, types.Hash{}, err
	}
	numParts := GetNumStateParts(stateHeader.StateRootNodeMemoryUsage)

	syncHeader, err := d.chain.BlockHeader(syncHash)
	if err != nil {
		return types.Hash{}, 0, types.Hash{}, err
	}
	return stateHeader.StateRoot, numParts, syncHeader.PrevHash, nil
}

// missingPartIDs lists the external storage directory and returns the part
// ids not yet uploaded.
func (d *dumper) missingPartIDs(epochID types.EpochID, epochHeight, numParts uint64) ([]uint64, error) {
	directory := external.LocationDirectory(d.chainID, epochID, epochHeight, d.shardID)
	fileNames, err := d.external.ListStateParts(d.ctx, d.shardID, directory)
	if err != nil {
		return nil, err
	}
	existing := make(map[uint64]struct{}, len(fileNames))
	for _, name := range fileNames {
		partID, err := external.PartIDFromFilename(name)
		if err != nil {
			continue
		}
		existing[partID] = struct{}{}
	}
	missing := make([]uint64, 0, numParts)
	for partID := uint64(0); partID < numParts; partID++ {
		if _, ok := existing[partID]; !ok {
			missing = append(missing, partID)
		}
	}
	d.logger.Debug().
		Int("num_missing", len(missing)).
		Str("directory", directory).
		Msg("Listed already dumped parts")
	return missing, nil
}

// obtainAndStoreStatePart materializes one part and persists it in the
// StateParts column before it is uploaded.
func (d *dumper) obtainAndStoreStatePart(syncHash, syncPrevHash, stateRoot types.Hash, partID, numParts uint64) ([]byte, error) {
	statePart, err := d.runtime.ObtainStatePart(d.shardID, syncPrevHash, stateRoot, partID, numParts)
	if err != nil {
		return nil, err
	}

	key := types.StatePartKey(syncHash, d.shardID, partID)
	update := d.store.NewBatch()
	update.Set(storage.ColStateParts, key, statePart)
	if err := update.Commit(); err != nil {
		return nil, err
	}
	return statePart, nil
}

func (d *dumper) updateDumpedSizeAndCountMetrics(epochHeight uint64, partLen int) {
	metrics.StateSyncDumpSizeTotal.
		WithLabelValues(strconv.FormatUint(epochHeight, 10), d.shardLabel()).
		Add(float64(partLen))
	metrics.StateSyncDumpNumPartsDumped.WithLabelValues(d.shardLabel()).Inc()
}

func (d *dumper) setMetrics(partsDumped, numParts, epochHeight *uint64) {
	if partsDumped != nil {
		metrics.StateSyncDumpNumPartsDumped.WithLabelValues(d.shardLabel()).Set(float64(*partsDumped))
	}
	if numParts != nil {
		metrics.StateSyncDumpNumPartsTotal.WithLabelValues(d.shardLabel()).Set(float64(*numParts))
	}
	if epochHeight != nil {
		// A huge epoch height means a corrupt index somewhere upstream;
		// record it loudly but keep the dumper alive.
		if *epochHeight >= 10000 {
			d.logger.Warn().
				Uint64("epoch_height", *epochHeight).
				Msg("Implausibly large epoch height while updating metrics")
		}
		metrics.StateSyncDumpEpochHeight.WithLabelValues(d.shardLabel()).Set(float64(*epochHeight))
	}
}

func (d *dumper) shardLabel() string {
	return strconv.FormatUint(d.shardID, 10)
}
