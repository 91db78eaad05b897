package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashLength is the byte length of a value hash.
const HashLength = 32

// Hash is a 32-byte content digest identifying a value in the
// content-addressed trie store.
type Hash [HashLength]byte

// EpochID names an epoch by the hash of its first block.
type EpochID = Hash

// AccountID identifies the validator account this node runs as, if any.
type AccountID string

// HashOf returns the content hash of data.
func HashOf(data []byte) Hash {
	return sha256.Sum256(data)
}

// HashFromBytes converts a 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("%w: hash must be %d bytes, got %d", ErrDecode, HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: invalid hash hex: %v", ErrDecode, err)
	}
	got, err := HashFromBytes(raw)
	if err != nil {
		return err
	}
	*h = got
	return nil
}
