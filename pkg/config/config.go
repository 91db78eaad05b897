package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the node configuration file.
type Config struct {
	ChainID   string          `yaml:"chain_id"`
	Migration MigrationConfig `yaml:"migration"`
	StateSync StateSyncConfig `yaml:"state_sync"`
}

// MigrationConfig tunes the FlatState value inlining migration.
type MigrationConfig struct {
	ReadStateThreads int `yaml:"read_state_threads"`
	BatchSize        int `yaml:"batch_size"`
}

// StateSyncConfig holds the state sync section. A nil Dump disables the
// dump loop entirely.
type StateSyncConfig struct {
	Dump *DumpConfig `yaml:"dump"`
}

// DumpConfig configures the per-shard state dump loop.
type DumpConfig struct {
	Location ExternalStorageLocation `yaml:"location"`
	// RestartDumpForShards lists shard ids whose persisted progress is
	// cleared on start, forcing a re-dump of the latest epoch.
	RestartDumpForShards []uint64 `yaml:"restart_dump_for_shards"`
	// IterationDelay is the sleep between idle ticks. Zero means the
	// 10 second default.
	IterationDelay Duration `yaml:"iteration_delay"`
}

// ExternalStorageLocation selects the dump backend. Exactly one field must
// be set.
type ExternalStorageLocation struct {
	S3         *S3Location         `yaml:"s3"`
	Filesystem *FilesystemLocation `yaml:"filesystem"`
}

// S3Location names an S3-compatible bucket.
type S3Location struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
}

// FilesystemLocation names a local directory tree.
type FilesystemLocation struct {
	RootDir string `yaml:"root_dir"`
}

// Duration wraps time.Duration with YAML support for strings like "250ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the Go duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts of the config that cannot be defaulted.
func (c *Config) Validate() error {
	if dump := c.StateSync.Dump; dump != nil {
		s3Set := dump.Location.S3 != nil
		fsSet := dump.Location.Filesystem != nil
		if s3Set == fsSet {
			return fmt.Errorf("state_sync.dump.location must set exactly one of s3 or filesystem")
		}
	}
	if c.Migration.ReadStateThreads < 0 || c.Migration.BatchSize < 0 {
		return fmt.Errorf("migration settings must not be negative")
	}
	return nil
}
