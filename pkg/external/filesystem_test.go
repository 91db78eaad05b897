package external

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-chain/tessera/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: os.Stderr})
	os.Exit(m.Run())
}

func TestFilesystemPutAndList(t *testing.T) {
	root := t.TempDir()
	conn := NewFilesystemConnection(root)
	ctx := context.Background()

	dir := "unittest/epoch_height=1/shard_id=0"
	require.NoError(t, conn.PutStatePart(ctx, []byte("part zero"), 0, dir+"/"+PartFilename(0, 2)))
	require.NoError(t, conn.PutStatePart(ctx, []byte("part one"), 0, dir+"/"+PartFilename(1, 2)))

	data, err := os.ReadFile(filepath.Join(root, dir, PartFilename(0, 2)))
	require.NoError(t, err)
	assert.Equal(t, []byte("part zero"), data)

	names, err := conn.ListStateParts(ctx, 0, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		PartFilename(0, 2),
		PartFilename(1, 2),
	}, names)
}

func TestFilesystemPutIsIdempotent(t *testing.T) {
	root := t.TempDir()
	conn := NewFilesystemConnection(root)
	ctx := context.Background()

	location := "unittest/epoch_height=1/shard_id=0/" + PartFilename(0, 1)
	require.NoError(t, conn.PutStatePart(ctx, []byte("v1"), 0, location))
	require.NoError(t, conn.PutStatePart(ctx, []byte("v1"), 0, location))

	names, err := conn.ListStateParts(ctx, 0, "unittest/epoch_height=1/shard_id=0")
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestFilesystemListMissingDirectoryIsEmpty(t *testing.T) {
	conn := NewFilesystemConnection(t.TempDir())

	names, err := conn.ListStateParts(context.Background(), 0, "nothing/here")
	require.NoError(t, err)
	assert.Empty(t, names)
}
