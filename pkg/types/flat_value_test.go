package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatStateValueRoundTrip(t *testing.T) {
	values := []FlatStateValue{
		ValueRef([]byte("some value")),
		ValueRef(nil),
		Inlined([]byte{0, 1, 2, 3}),
		Inlined(nil),
	}
	for _, value := range values {
		decoded, err := DecodeFlatStateValue(EncodeFlatStateValue(value))
		require.NoError(t, err)
		assert.Equal(t, value, decoded)
	}
}

func TestFlatStateValueEncoding(t *testing.T) {
	data := []byte{7, 8, 9}
	ref := ValueRef(data)
	encoded := EncodeFlatStateValue(ref)
	require.Len(t, encoded, 37)
	assert.EqualValues(t, 0x00, encoded[0])
	assert.Equal(t, HashOf(data[:]), ref.Hash)
	assert.EqualValues(t, 3, ref.Length)

	inlined := EncodeFlatStateValue(Inlined(data))
	assert.Equal(t, []byte{0x01, 3, 0, 0, 0, 7, 8, 9}, inlined)
}

func TestDecodeFlatStateValueErrors(t *testing.T) {
	cases := map[string][]byte{
		"empty":           nil,
		"unknown tag":     {0x02, 0, 0, 0, 0},
		"short ref":       {0x00, 1, 2, 3},
		"short inlined":   {0x01, 1, 0},
		"length mismatch": {0x01, 5, 0, 0, 0, 1},
		"oversized ref":   append(EncodeFlatStateValue(ValueRef([]byte{1})), 0xff),
	}
	for name, data := range cases {
		_, err := DecodeFlatStateValue(data)
		require.ErrorIs(t, err, ErrDecode, name)
	}
}

func TestValueRefMatchesStoredLength(t *testing.T) {
	data := make([]byte, InlineDiskValueThreshold+1)
	ref := ValueRef(data)
	assert.EqualValues(t, InlineDiskValueThreshold+1, ref.Size())
	assert.EqualValues(t, len(data), ref.Length)
}

func TestFlatStateKeyRoundTrip(t *testing.T) {
	uid := ShardUID{Version: 1, ShardID: 3}
	key := EncodeFlatStateKey(uid, []byte("trie-key"))
	gotUID, trieKey, err := DecodeFlatStateKey(key)
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID)
	assert.Equal(t, []byte("trie-key"), trieKey)

	_, _, err = DecodeFlatStateKey([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrDecode)
}

func TestShardUIDOrdering(t *testing.T) {
	// Version orders before shard id.
	a := ShardUID{Version: 1, ShardID: 200}
	b := ShardUID{Version: 2, ShardID: 1}
	assert.Less(t, string(a.Bytes()), string(b.Bytes()))
}
