package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFilesystemDumpConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
chain_id: unittest
migration:
  read_state_threads: 4
  batch_size: 1000
state_sync:
  dump:
    location:
      filesystem:
        root_dir: /var/dumps
    restart_dump_for_shards: [0, 2]
    iteration_delay: 250ms
`))
	require.NoError(t, err)

	assert.Equal(t, "unittest", cfg.ChainID)
	assert.Equal(t, 4, cfg.Migration.ReadStateThreads)
	assert.Equal(t, 1000, cfg.Migration.BatchSize)

	dump := cfg.StateSync.Dump
	require.NotNil(t, dump)
	require.NotNil(t, dump.Location.Filesystem)
	assert.Equal(t, "/var/dumps", dump.Location.Filesystem.RootDir)
	assert.Equal(t, []uint64{0, 2}, dump.RestartDumpForShards)
	assert.Equal(t, 250*time.Millisecond, time.Duration(dump.IterationDelay))
}

func TestLoadS3DumpConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
chain_id: mainnet
state_sync:
  dump:
    location:
      s3:
        bucket: state-dumps
        region: eu-central-1
`))
	require.NoError(t, err)

	dump := cfg.StateSync.Dump
	require.NotNil(t, dump)
	require.NotNil(t, dump.Location.S3)
	assert.Equal(t, "state-dumps", dump.Location.S3.Bucket)
	assert.Equal(t, "eu-central-1", dump.Location.S3.Region)
	assert.Nil(t, dump.Location.Filesystem)
}

func TestLoadWithoutDumpSection(t *testing.T) {
	cfg, err := Load(writeConfig(t, "chain_id: unittest\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.StateSync.Dump)
}

func TestValidateRejectsAmbiguousLocation(t *testing.T) {
	_, err := Load(writeConfig(t, `
state_sync:
  dump:
    location:
      s3:
        bucket: b
        region: r
      filesystem:
        root_dir: /tmp
`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `
state_sync:
  dump:
    location: {}
`))
	require.Error(t, err)
}

func TestInvalidDurationFails(t *testing.T) {
	_, err := Load(writeConfig(t, `
state_sync:
  dump:
    location:
      filesystem:
        root_dir: /tmp
    iteration_delay: soon
`))
	require.Error(t, err)
}
