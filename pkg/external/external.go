package external

import "context"

// Connection is a uniform handle over the external object storage a dump
// writes to. Implementations are immutable after construction and cheap to
// copy across dumper tasks.
//
// Part objects are write-once and keyed deterministically, so uploading the
// same part twice is safe on every backend.
type Connection interface {
	// PutStatePart uploads one state part to location.
	PutStatePart(ctx context.Context, data []byte, shardID uint64, location string) error

	// ListStateParts returns the object names directly under directory.
	// A directory that does not exist yet lists as empty.
	ListStateParts(ctx context.Context, shardID uint64, directory string) ([]string, error)
}
