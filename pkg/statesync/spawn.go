package statesync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tessera-chain/tessera/pkg/config"
	"github.com/tessera-chain/tessera/pkg/external"
	"github.com/tessera-chain/tessera/pkg/log"
	"github.com/tessera-chain/tessera/pkg/storage"
	"github.com/tessera-chain/tessera/pkg/types"
)

// defaultIterationDelay is the idle sleep between dump loop ticks when the
// config leaves it unset.
const defaultIterationDelay = 10 * time.Second

// Handle controls the lifetime of the spawned dumper tasks.
type Handle struct {
	keepRunning *atomic.Bool
	tasks       sync.WaitGroup
	stopOnce    sync.Once
}

// Stop asks every dumper task to stop and waits for them to exit. Tasks
// observe the flag at every iteration boundary and between part uploads, so
// shutdown latency is bounded by one part cycle or one idle sleep.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.keepRunning.Store(false)
		h.tasks.Wait()
	})
}

// SpawnStateSyncDump starts one dumper task per shard of the head epoch.
//
// A nil dumpCfg means dumping is not configured; no tasks start and the
// returned handle is nil. newChain is called once per task because a chain
// view is not safe to share across goroutines.
func SpawnStateSyncDump(
	dumpCfg *config.DumpConfig,
	chainID string,
	store *storage.Store,
	newChain func() (Chain, error),
	epochManager EpochManager,
	shardTracker ShardTracker,
	runtime Runtime,
	accountID types.AccountID,
) (*Handle, error) {
	logger := log.WithComponent("state_sync_dump")
	if dumpCfg == nil {
		// Dump is not configured, and therefore not enabled.
		logger.Debug().Msg("Not spawning the state sync dump loop")
		return nil, nil
	}
	logger.Info().Msg("Spawning the state sync dump loop")

	ctx := context.Background()
	var externalConn external.Connection
	switch {
	case dumpCfg.Location.S3 != nil:
		conn, err := external.NewS3Connection(ctx, dumpCfg.Location.S3.Bucket, dumpCfg.Location.S3.Region)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create a connection to S3. Did you provide environment variables AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY?")
			return nil, err
		}
		externalConn = conn
	case dumpCfg.Location.Filesystem != nil:
		externalConn = external.NewFilesystemConnection(dumpCfg.Location.Filesystem.RootDir)
	default:
		return nil, fmt.Errorf("state sync dump location not configured")
	}

	// Determine how many tasks to start.
	numShards, err := func() (uint64, error) {
		chain, err := newChain()
		if err != nil {
			return 0, err
		}
		head, err := chain.Head()
		if err != nil {
			return 0, err
		}
		return epochManager.NumShards(head.EpochID)
	}()
	if err != nil {
		return nil, fmt.Errorf("failed to determine the number of shards: %w", err)
	}

	iterationDelay := time.Duration(dumpCfg.IterationDelay)
	if iterationDelay <= 0 {
		iterationDelay = defaultIterationDelay
	}
	restartShards := make(map[uint64]bool, len(dumpCfg.RestartDumpForShards))
	for _, shardID := range dumpCfg.RestartDumpForShards {
		restartShards[shardID] = true
	}

	keepRunning := &atomic.Bool{}
	keepRunning.Store(true)
	handle := &Handle{keepRunning: keepRunning}

	for shardID := uint64(0); shardID < numShards; shardID++ {
		chain, err := newChain()
		if err != nil {
			keepRunning.Store(false)
			handle.tasks.Wait()
			return nil, fmt.Errorf("failed to create a chain view for shard %d: %w", shardID, err)
		}
		d := &dumper{
			shardID:        shardID,
			chain:          chain,
			epochManager:   epochManager,
			shardTracker:   shardTracker,
			runtime:        runtime,
			store:          store,
			chainID:        chainID,
			external:       externalConn,
			iterationDelay: iterationDelay,
			accountID:      accountID,
			keepRunning:    keepRunning,
			logger:         log.WithComponent("state_sync_dump").With().Uint64("shard_id", shardID).Logger(),
			ctx:            ctx,
		}
		restart := restartShards[shardID]
		handle.tasks.Add(1)
		go func() {
			defer handle.tasks.Done()
			if restart {
				d.logger.Debug().Msg("Dropped existing progress")
				if err := store.SetStateSyncDumpProgress(d.shardID, nil); err != nil {
					d.logger.Warn().Err(err).Msg("Failed to drop existing progress")
				}
			}
			d.run()
		}()
	}

	return handle, nil
}
