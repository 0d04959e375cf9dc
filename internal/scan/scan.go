// Package scan walks the staging tree and detects which files have stopped
// changing between polls.
//
// Tree produces a point-in-time snapshot of every file with its size and
// modification time. Detector compares consecutive snapshots: a file is
// settled once two polls in a row observe the same size. Size alone decides
// settledness; modification times are recorded for downstream consumers but
// deliberately ignored here, since tools that preset mtimes mid-write would
// otherwise look idle while still growing.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// FileRecord describes one staged file.
type FileRecord struct {
	// RelPath is slash-separated and relative to the staging root.
	RelPath string
	Size    int64
	ModTime time.Time
}

// Snapshot is a point-in-time view of the staging tree keyed by RelPath.
type Snapshot map[string]FileRecord

// Paths returns the snapshot's relative paths in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// TotalSize sums the sizes of every file in the snapshot.
func (s Snapshot) TotalSize() int64 {
	var total int64
	for _, record := range s {
		total += record.Size
	}
	return total
}

// Tree scans the directory tree rooted at root and returns a snapshot of
// every file beneath it. Each call is a fresh traversal; no state survives
// between calls, so an aborted scan leaves nothing to clean up.
//
// The walk is iterative over an explicit directory stack. Directories are
// traversal structure only and never appear in the snapshot. Symlinks are
// recorded with their own lstat size and never followed, which keeps link
// cycles from hanging the scanner.
//
// Any traversal failure returns a nil snapshot and the error; the caller
// treats the cycle as having made no progress.
func Tree(root string) (Snapshot, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root: %s is not a directory", root)
	}

	snapshot := make(Snapshot)
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		// ReadDir sorts by name; pushing subdirectories in reverse keeps
		// the stack popping them in lexicographic order.
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, full)
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", full, err)
			}
			if !info.Mode().IsRegular() && info.Mode()&fs.ModeSymlink == 0 {
				// Sockets, fifos and devices have no transferable content.
				continue
			}
			rel, err := filepath.Rel(root, full)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", full, err)
			}
			rel = path.Clean(filepath.ToSlash(rel))
			snapshot[rel] = FileRecord{
				RelPath: rel,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
		}
	}
	return snapshot, nil
}
