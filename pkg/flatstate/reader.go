package flatstate

import (
	"sync"

	"github.com/tessera-chain/tessera/pkg/storage"
	"github.com/tessera-chain/tessera/pkg/types"
)

type readValueRequest struct {
	shardUID  types.ShardUID
	valueHash types.Hash
}

type readValueResponse struct {
	valueHash  types.Hash
	valueBytes []byte // nil when the read failed
}

// StateValueReader resolves value hashes into raw bytes from the trie store
// using multiple worker goroutines.
//
// Submit is non-blocking; ReceiveAll drains every outstanding request. The
// reader must be released with Close, which shuts the request queue before
// joining the workers so they observe closure and exit instead of blocking
// forever on an empty queue.
type StateValueReader struct {
	pendingRequests int
	requests        *queue[readValueRequest]
	responses       *queue[readValueResponse]
	workers         sync.WaitGroup
}

// NewStateValueReader spawns numThreads workers reading from store.
func NewStateValueReader(store *storage.Store, numThreads int) *StateValueReader {
	r := &StateValueReader{
		requests:  newQueue[readValueRequest](),
		responses: newQueue[readValueResponse](),
	}
	for i := 0; i < numThreads; i++ {
		r.workers.Add(1)
		go func() {
			defer r.workers.Done()
			r.readValueLoop(store)
		}()
	}
	return r
}

// Submit queues one (shard, hash) resolution. Never blocks.
func (r *StateValueReader) Submit(shardUID types.ShardUID, valueHash types.Hash) {
	r.requests.push(readValueRequest{shardUID: shardUID, valueHash: valueHash})
	r.pendingRequests++
}

// ReceiveAll blocks until every submitted request has produced a response
// and returns the resolved values keyed by hash. Hashes that could not be
// read are absent. Duplicate submissions collapse onto one map entry.
func (r *StateValueReader) ReceiveAll() map[types.Hash][]byte {
	ret := make(map[types.Hash][]byte)
	for r.pendingRequests > 0 {
		resp, ok := r.responses.pop()
		if !ok {
			break
		}
		if resp.valueBytes != nil {
			ret[resp.valueHash] = resp.valueBytes
		}
		r.pendingRequests--
	}
	return ret
}

func (r *StateValueReader) readValueLoop(store *storage.Store) {
	for {
		req, ok := r.requests.pop()
		if !ok {
			return
		}
		trieStorage := storage.NewTrieStorage(store, req.shardUID)
		bytes, err := trieStorage.RetrieveRawBytes(req.valueHash)
		if err != nil {
			logSkipped("failed to read value from State", err)
			bytes = nil
		}
		r.responses.push(readValueResponse{valueHash: req.valueHash, valueBytes: bytes})
	}
}

// Close shuts the request queue and joins all workers. The reader must not
// be used afterwards.
func (r *StateValueReader) Close() {
	r.requests.close()
	r.workers.Wait()
}
