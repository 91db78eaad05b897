package external

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tessera-chain/tessera/pkg/types"
)

const partFilenamePrefix = "state_part_"

// PartFilename formats the object name of one state part:
// state_part_<part_id>_of_<num_parts>, both zero-padded to six digits.
func PartFilename(partID, numParts uint64) string {
	return fmt.Sprintf("%s%06d_of_%06d", partFilenamePrefix, partID, numParts)
}

// Location returns the full object path of a state part.
func Location(chainID string, epochID types.EpochID, epochHeight uint64, shardID, partID, numParts uint64) string {
	return fmt.Sprintf("%s/%s", LocationDirectory(chainID, epochID, epochHeight, shardID), PartFilename(partID, numParts))
}

// LocationDirectory returns the directory all parts of one
// (chain, epoch, shard) dump share.
func LocationDirectory(chainID string, epochID types.EpochID, epochHeight uint64, shardID uint64) string {
	return fmt.Sprintf("%s/epoch_height=%d/shard_id=%d", chainID, epochHeight, shardID)
}

// PartIDFromFilename extracts the part id from a part object name.
func PartIDFromFilename(filename string) (uint64, error) {
	rest, found := strings.CutPrefix(filename, partFilenamePrefix)
	if !found {
		return 0, fmt.Errorf("%q is not a state part filename", filename)
	}
	partStr, numStr, found := strings.Cut(rest, "_of_")
	if !found {
		return 0, fmt.Errorf("%q is not a state part filename", filename)
	}
	partID, err := strconv.ParseUint(partStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid part id in %q: %w", filename, err)
	}
	if _, err := strconv.ParseUint(numStr, 10, 64); err != nil {
		return 0, fmt.Errorf("invalid part count in %q: %w", filename, err)
	}
	return partID, nil
}

// IsPartFilename reports whether filename names a state part object.
func IsPartFilename(filename string) bool {
	_, err := PartIDFromFilename(filename)
	return err == nil
}
