package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tessera-chain/tessera/pkg/log"
)

// FilesystemConnection dumps state parts into a local directory tree. Mostly
// useful for tests and for operators who sync the tree out-of-band.
type FilesystemConnection struct {
	rootDir string
}

// NewFilesystemConnection roots a connection at rootDir.
func NewFilesystemConnection(rootDir string) *FilesystemConnection {
	return &FilesystemConnection{rootDir: rootDir}
}

func (c *FilesystemConnection) PutStatePart(ctx context.Context, data []byte, shardID uint64, location string) error {
	path := filepath.Join(c.rootDir, filepath.FromSlash(location))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state part: %w", err)
	}
	log.WithShardID(shardID).Debug().Str("path", path).Msg("Wrote a state part to a file")
	return nil
}

func (c *FilesystemConnection) ListStateParts(ctx context.Context, shardID uint64, directory string) ([]string, error) {
	path := filepath.Join(c.rootDir, filepath.FromSlash(directory))
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list state parts: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
