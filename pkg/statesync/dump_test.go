package statesync

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-chain/tessera/pkg/storage"
	"github.com/tessera-chain/tessera/pkg/types"
)

func TestGetNumStateParts(t *testing.T) {
	assert.EqualValues(t, 1, GetNumStateParts(0))
	assert.EqualValues(t, 1, GetNumStateParts(1))
	assert.EqualValues(t, 1, GetNumStateParts(statePartSizeBytes))
	assert.EqualValues(t, 2, GetNumStateParts(statePartSizeBytes+1))
	assert.EqualValues(t, 3, GetNumStateParts(2*statePartSizeBytes+1))
}

// Every shard of the head epoch ends up with all of its part files in the
// dump directory, and the persisted progress settles on AllDumped.
func TestStateDump(t *testing.T) {
	env := newDumpEnv(t, 2)
	env.spawn(nil)

	waitFor(t, 10*time.Second, func() bool {
		for shardID := uint64(0); shardID < 2; shardID++ {
			for partID := uint64(0); partID < env.numParts; partID++ {
				if _, err := os.Stat(env.partPath(shardID, partID)); err != nil {
					return false
				}
			}
		}
		return true
	})

	waitFor(t, 10*time.Second, func() bool {
		for shardID := uint64(0); shardID < 2; shardID++ {
			progress, err := env.store.GetStateSyncDumpProgress(shardID)
			if err != nil || progress.Kind != types.DumpAllDumped {
				return false
			}
			if progress.EpochID != env.epochID || progress.NumParts != env.numParts {
				return false
			}
		}
		return true
	})

	// Parts were also persisted locally before upload.
	syncHash := env.chain.syncHash
	for partID := uint64(0); partID < env.numParts; partID++ {
		data, err := env.store.Get(storage.ColStateParts, types.StatePartKey(syncHash, 0, partID))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}

// Pre-seeded AllDumped progress is cleared for shards listed in
// restart_dump_for_shards, and the epoch is dumped again.
func TestRestartDumpForShard(t *testing.T) {
	env := newDumpEnv(t, 1)

	// Already marked fully dumped for the current epoch, with a part count
	// that could only come from the stale record.
	require.NoError(t, env.store.SetStateSyncDumpProgress(0,
		types.AllDumped(env.epochID, env.epochHeight, 0)))

	env.spawn([]uint64{0})

	waitFor(t, 10*time.Second, func() bool {
		progress, err := env.store.GetStateSyncDumpProgress(0)
		if err != nil {
			// In between the restart-clear and the first dump tick the
			// record is absent.
			return false
		}
		return progress.Kind == types.DumpAllDumped && progress.NumParts == env.numParts
	})

	for partID := uint64(0); partID < env.numParts; partID++ {
		_, err := os.Stat(env.partPath(0, partID))
		require.NoError(t, err)
	}
}

// Without a restart request, an AllDumped record for the head epoch keeps
// the dumper idle.
func TestAllDumpedEpochStaysIdle(t *testing.T) {
	env := newDumpEnv(t, 1)
	require.NoError(t, env.store.SetStateSyncDumpProgress(0,
		types.AllDumped(env.epochID, env.epochHeight, env.numParts)))

	env.spawn(nil)

	// Give the loop a few ticks; no part may appear.
	time.Sleep(500 * time.Millisecond)
	assert.Zero(t, env.runtime.callsFor(0))
	_, err := os.Stat(env.partPath(0, 0))
	assert.True(t, os.IsNotExist(err))
}

// Stopping the supervisor halts every dumper task within one part cycle or
// one idle sleep.
func TestStopLatency(t *testing.T) {
	env := newDumpEnv(t, 2)
	handle := env.spawn(nil)

	start := time.Now()
	handle.Stop()
	assert.Less(t, time.Since(start), 5*time.Second)

	// No new parts get obtained after Stop returns.
	calls := env.runtime.callsFor(0) + env.runtime.callsFor(1)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, calls, env.runtime.callsFor(0)+env.runtime.callsFor(1))
}

// A shard the account does not track is marked AllDumped with zero parts
// and nothing is uploaded for it.
func TestUntrackedShardSkipsEpoch(t *testing.T) {
	env := newDumpEnv(t, 2)
	env.tracker.untracked[1] = true

	env.spawn(nil)

	waitFor(t, 10*time.Second, func() bool {
		progress, err := env.store.GetStateSyncDumpProgress(1)
		return err == nil && progress.Kind == types.DumpAllDumped && progress.NumParts == 0
	})

	assert.Zero(t, env.runtime.callsFor(1))
	_, err := os.Stat(env.partPath(1, 0))
	assert.True(t, os.IsNotExist(err))

	// The tracked shard still dumps normally.
	waitFor(t, 10*time.Second, func() bool {
		progress, err := env.store.GetStateSyncDumpProgress(0)
		return err == nil && progress.Kind == types.DumpAllDumped && progress.NumParts == env.numParts
	})
}

// Garbage progress bytes are treated as a fresh start rather than an error.
func TestMalformedProgressRestartsStateMachine(t *testing.T) {
	env := newDumpEnv(t, 1)

	batch := env.store.NewBatch()
	batch.Set(storage.ColStateSyncDumpProgress, []byte{0, 0, 0, 0, 0, 0, 0, 0}, []byte("not json"))
	require.NoError(t, batch.Commit())

	env.spawn(nil)

	waitFor(t, 10*time.Second, func() bool {
		progress, err := env.store.GetStateSyncDumpProgress(0)
		return err == nil && progress.Kind == types.DumpAllDumped && progress.NumParts == env.numParts
	})
}

// Progress epoch heights never decrease across the recorded transitions.
func TestProgressEpochHeightMonotone(t *testing.T) {
	env := newDumpEnv(t, 1)
	env.spawn(nil)

	var heights []uint64
	waitFor(t, 10*time.Second, func() bool {
		progress, err := env.store.GetStateSyncDumpProgress(0)
		if err != nil {
			return false
		}
		heights = append(heights, progress.EpochHeight)
		return progress.Kind == types.DumpAllDumped
	})
	for i := 1; i < len(heights); i++ {
		assert.LessOrEqual(t, heights[i-1], heights[i])
	}
}

// A disabled dump config spawns nothing.
func TestDumpDisabledWithoutConfig(t *testing.T) {
	env := newDumpEnv(t, 1)
	handle, err := SpawnStateSyncDump(
		nil,
		"unittest",
		env.store,
		func() (Chain, error) { return env.chain, nil },
		env.epochManager,
		env.tracker,
		env.runtime,
		"",
	)
	require.NoError(t, err)
	assert.Nil(t, handle)
}

func TestCheckNewEpochIdleWhenHeadUnchanged(t *testing.T) {
	env := newDumpEnv(t, 1)
	d := &dumper{
		shardID:      0,
		chain:        env.chain,
		epochManager: env.epochManager,
		shardTracker: env.tracker,
		runtime:      env.runtime,
		store:        env.store,
		chainID:      "unittest",
	}

	next, err := d.checkNewEpoch(types.AllDumped(env.epochID, env.epochHeight, env.numParts))
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestCheckNewEpochStartsDumpingFresh(t *testing.T) {
	env := newDumpEnv(t, 1)
	d := &dumper{
		shardID:      0,
		chain:        env.chain,
		epochManager: env.epochManager,
		shardTracker: env.tracker,
		runtime:      env.runtime,
		store:        env.store,
		chainID:      "unittest",
	}

	next, err := d.checkNewEpoch(nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, types.DumpInProgress, next.Kind)
	assert.Equal(t, env.epochID, next.EpochID)
	assert.Equal(t, env.chain.syncHash, next.SyncHash)
}

func TestCheckNewEpochPropagatesChainErrors(t *testing.T) {
	env := newDumpEnv(t, 1)
	// Break the header lookup for the head block.
	delete(env.chain.headers, env.chain.head.LastBlockHash)
	d := &dumper{
		shardID:      0,
		chain:        env.chain,
		epochManager: env.epochManager,
		shardTracker: env.tracker,
		runtime:      env.runtime,
		store:        env.store,
		chainID:      "unittest",
	}

	_, err := d.checkNewEpoch(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
