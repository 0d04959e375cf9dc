// Package remote defines the destination abstraction the sync loop, probe,
// and eviction engine operate against.
//
// Implementations live in internal/services: an rclone subprocess backend and
// a native S3 backend. Both are constructed from explicit configuration; the
// interface deliberately has no notion of environment or defaults.
package remote

import (
	"context"
	"time"
)

// Entry describes one object at the destination.
type Entry struct {
	// Path is slash-separated and relative to the destination root.
	Path    string
	Size    int64
	ModTime time.Time
}

// Remote is a destination that staged files are moved to and that eviction
// reclaims space from. Paths are always relative to the destination root.
type Remote interface {
	// List enumerates every object under the destination root.
	List(ctx context.Context) ([]Entry, error)
	// Exists reports whether any object exists under relPath, fully or
	// partially transferred.
	Exists(ctx context.Context, relPath string) (bool, error)
	// Move transfers the selected staging files to the destination,
	// deleting each from the staging tree once it has landed and pruning
	// emptied staging subdirectories. An error means the transfer did not
	// fully succeed.
	Move(ctx context.Context, batch Batch) error
	// Delete removes one object.
	Delete(ctx context.Context, relPath string) error
	// Zero overwrites one object with zero bytes in place.
	Zero(ctx context.Context, relPath string) error
	// Purge forces the destination to reclaim space still held for the
	// object after a Zero, on backends that retain old versions. Backends
	// without retention implement it as a no-op.
	Purge(ctx context.Context, relPath string) error
}

// TotalSize sums the sizes of the provided entries.
func TotalSize(entries []Entry) int64 {
	var total int64
	for _, entry := range entries {
		total += entry.Size
	}
	return total
}
