// Package staging provides filesystem helpers for the staging source tree:
// empty-directory pruning after moves, usage statistics for status output,
// and startup access checks.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"
)

// PruneEmptyDirs removes empty directories strictly below root, deepest
// first, so a chain of empties collapses in one pass. The root itself is
// never removed. It returns the directories removed.
func PruneEmptyDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prune %s: %w", root, err)
	}

	// Deepest paths first so children disappear before their parents are
	// considered.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	var removed []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("prune %s: %w", dir, err)
		}
		if len(entries) != 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return removed, fmt.Errorf("prune %s: %w", dir, err)
		}
		removed = append(removed, dir)
	}
	return removed, nil
}

// Usage describes the staging tree and the filesystem backing it.
type Usage struct {
	FileCount  int
	TotalBytes int64
	DiskTotal  uint64
	DiskFree   uint64
}

// Stats walks the tree rooted at root and samples the backing filesystem.
// Walk errors below the root are skipped so a file vanishing mid-walk does
// not spoil status output.
func Stats(root string) (Usage, error) {
	var usage Usage

	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		return usage, fmt.Errorf("statfs %s: %w", root, err)
	}
	usage.DiskTotal = stat.Blocks * uint64(stat.Bsize)
	usage.DiskFree = stat.Bavail * uint64(stat.Bsize)

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		usage.FileCount++
		usage.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return usage, fmt.Errorf("walk %s: %w", root, err)
	}
	return usage, nil
}

// CheckAccess verifies the directory exists and the process can read, write,
// and traverse it.
func CheckAccess(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("access %s: not a directory", dir)
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("access %s: insufficient permissions: %w", dir, err)
	}
	return nil
}
