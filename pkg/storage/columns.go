package storage

// Column names a keyspace within the store. Each column is backed by its own
// bucket and is ordered by byte-lexicographic key comparison.
type Column string

const (
	// ColFlatState holds the denormalized trie mirror.
	// key - shard_uid(8) ‖ trie_key
	// value - encoded FlatStateValue (ref or inlined)
	ColFlatState Column = "FlatState"

	// ColState is the content-addressed trie node store backing Ref values.
	// Refcounted.
	// key - shard_uid(8) ‖ value_hash(32)
	// value - raw value bytes
	ColState Column = "State"

	// ColStateParts holds materialized state parts pending or after upload.
	// key - sync_hash(32) ‖ shard_id(u64 LE) ‖ part_id(u64 LE)
	// value - raw part bytes
	ColStateParts Column = "StateParts"

	// ColStateSyncDumpProgress holds the per-shard dump state machine state.
	// key - shard_id(u64 LE)
	// value - serialized DumpProgress
	ColStateSyncDumpProgress Column = "StateSyncDumpProgress"
)

var allColumns = []Column{
	ColFlatState,
	ColState,
	ColStateParts,
	ColStateSyncDumpProgress,
}

// refcounted reports whether values in the column carry a reference count
// suffix and are removed only when the count drops to zero.
func (c Column) refcounted() bool {
	return c == ColState
}
