package types

import (
	"encoding/binary"
	"fmt"
)

// ShardUIDLength is the encoded byte length of a ShardUID.
const ShardUIDLength = 8

// ShardUID names a shard scoped to a shard layout version. The encoding is
// big-endian so that encoded keys order first by version, then by shard id.
type ShardUID struct {
	Version uint32
	ShardID uint32
}

// Bytes returns the 8-byte big-endian encoding.
func (u ShardUID) Bytes() []byte {
	b := make([]byte, ShardUIDLength)
	binary.BigEndian.PutUint32(b[0:4], u.Version)
	binary.BigEndian.PutUint32(b[4:8], u.ShardID)
	return b
}

func (u ShardUID) String() string {
	return fmt.Sprintf("s%dv%d", u.ShardID, u.Version)
}

// ShardUIDFromBytes decodes the 8-byte big-endian encoding.
func ShardUIDFromBytes(b []byte) (ShardUID, error) {
	if len(b) != ShardUIDLength {
		return ShardUID{}, fmt.Errorf("%w: shard uid must be %d bytes, got %d", ErrDecode, ShardUIDLength, len(b))
	}
	return ShardUID{
		Version: binary.BigEndian.Uint32(b[0:4]),
		ShardID: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}
