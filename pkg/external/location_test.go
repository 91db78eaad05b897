package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-chain/tessera/pkg/types"
)

func TestLocationFormat(t *testing.T) {
	epochID := types.HashOf([]byte("epoch"))

	assert.Equal(t,
		"unittest/epoch_height=3/shard_id=1",
		LocationDirectory("unittest", epochID, 3, 1))
	assert.Equal(t,
		"unittest/epoch_height=3/shard_id=1/state_part_000002_of_000007",
		Location("unittest", epochID, 3, 1, 2, 7))
}

func TestPartFilenameRoundTrip(t *testing.T) {
	name := PartFilename(42, 100)
	assert.Equal(t, "state_part_000042_of_000100", name)
	assert.True(t, IsPartFilename(name))

	partID, err := PartIDFromFilename(name)
	require.NoError(t, err)
	assert.EqualValues(t, 42, partID)
}

func TestPartFilenameRejectsForeignNames(t *testing.T) {
	for _, name := range []string{
		"",
		"state_part_",
		"state_part_12",
		"state_part_x_of_3",
		"state_part_1_of_x",
		"checkpoint_000001_of_000003",
	} {
		assert.False(t, IsPartFilename(name), name)
	}
}
