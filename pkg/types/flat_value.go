package types

import (
	"encoding/binary"
	"fmt"
)

// InlineDiskValueThreshold is the maximum length in bytes of a value that is
// stored inlined in the FlatState column. Longer values stay as references
// into the trie store.
const InlineDiskValueThreshold = 4000

const (
	tagRef     = 0x00
	tagInlined = 0x01
)

// FlatStateValue is a FlatState column entry: either a reference into the
// content-addressed trie store or the value bytes themselves.
//
// ValueRef and Inlined are the only constructors.
type FlatStateValue interface {
	flatStateValue()

	// Size returns the length in bytes of the underlying value.
	Size() uint64
}

// RefValue is the indirect form: the actual bytes live in the trie store
// under (shard_uid, Hash).
type RefValue struct {
	Hash   Hash
	Length uint32
}

// InlinedValue is the direct form.
type InlinedValue []byte

func (RefValue) flatStateValue()     {}
func (InlinedValue) flatStateValue() {}

func (r RefValue) Size() uint64 {
	return uint64(r.Length)
}

func (v InlinedValue) Size() uint64 {
	return uint64(len(v))
}

// ValueRef builds the reference form of value.
func ValueRef(value []byte) RefValue {
	return RefValue{Hash: HashOf(value), Length: uint32(len(value))}
}

// Inlined builds the inlined form of value, copying the bytes.
func Inlined(value []byte) InlinedValue {
	out := make(InlinedValue, len(value))
	copy(out, value)
	return out
}

// EncodeFlatStateValue serializes v into its stable byte form:
//
//	0x00 ‖ hash(32) ‖ length(u32 LE)   for a reference
//	0x01 ‖ length(u32 LE) ‖ bytes      for an inlined value
func EncodeFlatStateValue(v FlatStateValue) []byte {
	switch val := v.(type) {
	case RefValue:
		out := make([]byte, 1+HashLength+4)
		out[0] = tagRef
		copy(out[1:], val.Hash[:])
		binary.LittleEndian.PutUint32(out[1+HashLength:], val.Length)
		return out
	case InlinedValue:
		out := make([]byte, 1+4+len(val))
		out[0] = tagInlined
		binary.LittleEndian.PutUint32(out[1:], uint32(len(val)))
		copy(out[5:], val)
		return out
	default:
		panic(fmt.Sprintf("unknown FlatStateValue %T", v))
	}
}

// DecodeFlatStateValue parses the stable byte form produced by
// EncodeFlatStateValue.
func DecodeFlatStateValue(data []byte) (FlatStateValue, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty FlatState value", ErrDecode)
	}
	switch data[0] {
	case tagRef:
		if len(data) != 1+HashLength+4 {
			return nil, fmt.Errorf("%w: ref value must be %d bytes, got %d", ErrDecode, 1+HashLength+4, len(data))
		}
		var h Hash
		copy(h[:], data[1:1+HashLength])
		return RefValue{
			Hash:   h,
			Length: binary.LittleEndian.Uint32(data[1+HashLength:]),
		}, nil
	case tagInlined:
		if len(data) < 5 {
			return nil, fmt.Errorf("%w: truncated inlined value", ErrDecode)
		}
		length := binary.LittleEndian.Uint32(data[1:5])
		if uint32(len(data)-5) != length {
			return nil, fmt.Errorf("%w: inlined length %d does not match payload %d", ErrDecode, length, len(data)-5)
		}
		return Inlined(data[5:]), nil
	default:
		return nil, fmt.Errorf("%w: unknown FlatState value tag 0x%02x", ErrDecode, data[0])
	}
}
