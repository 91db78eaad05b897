package types

import (
	"encoding/binary"
	"fmt"
)

// EncodeFlatStateKey builds a FlatState column key: shard_uid(8) ‖ trie_key.
func EncodeFlatStateKey(shardUID ShardUID, trieKey []byte) []byte {
	out := make([]byte, 0, ShardUIDLength+len(trieKey))
	out = append(out, shardUID.Bytes()...)
	return append(out, trieKey...)
}

// DecodeFlatStateKey splits a FlatState column key into its shard uid and
// trie key parts.
func DecodeFlatStateKey(key []byte) (ShardUID, []byte, error) {
	if len(key) < ShardUIDLength {
		return ShardUID{}, nil, fmt.Errorf("%w: FlatState key shorter than shard uid: %d bytes", ErrDecode, len(key))
	}
	uid, err := ShardUIDFromBytes(key[:ShardUIDLength])
	if err != nil {
		return ShardUID{}, nil, err
	}
	return uid, key[ShardUIDLength:], nil
}

// EncodeTrieKey builds a State column key: shard_uid(8) ‖ value_hash(32).
func EncodeTrieKey(shardUID ShardUID, hash Hash) []byte {
	out := make([]byte, 0, ShardUIDLength+HashLength)
	out = append(out, shardUID.Bytes()...)
	return append(out, hash[:]...)
}

// StatePartKey builds a StateParts column key:
// sync_hash(32) ‖ shard_id(u64 LE) ‖ part_id(u64 LE).
func StatePartKey(syncHash Hash, shardID uint64, partID uint64) []byte {
	out := make([]byte, HashLength+16)
	copy(out, syncHash[:])
	binary.LittleEndian.PutUint64(out[HashLength:], shardID)
	binary.LittleEndian.PutUint64(out[HashLength+8:], partID)
	return out
}
