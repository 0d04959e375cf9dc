// Package truncate shortens staged file names whose absolute paths exceed a
// configured byte length, keeping destination filesystems and transfer tools
// with tight path limits happy.
//
// Only file names are rewritten; directory names are left alone. A renamed
// file's absolute path is exactly the configured maximum and its extension is
// preserved, so downstream tools still recognize the content type.
package truncate

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"shuttle/internal/logging"
)

// Rename records one performed truncation.
type Rename struct {
	From string
	To   string
}

// Apply walks the tree rooted at root and renames every file whose absolute
// path is longer than maxLen bytes, trimming the filename stem so the new
// absolute path length equals maxLen exactly. It returns the renames
// performed, in traversal order.
//
// When the trimmed name already exists, the stem tail is replaced with an
// 8-hex digest of the original name at the same target length; a second
// collision is an error. Rename failures are returned immediately so the
// caller can abort the cycle before scanning half-renamed state.
func Apply(root string, maxLen int, logger *slog.Logger) ([]Rename, error) {
	if maxLen <= 0 {
		return nil, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("truncate root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("truncate root: %s is not a directory", root)
	}

	var renames []Rename
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return renames, fmt.Errorf("truncate %s: %w", dir, err)
		}
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, full)
				continue
			}
			if len(full) <= maxLen {
				continue
			}
			target, ok := shorten(dir, entry.Name(), maxLen)
			if !ok {
				logger.Warn("path too long but directory prefix leaves no room for a file name; skipping",
					logging.String("path", full),
					logging.Int("max_path_length", maxLen),
				)
				continue
			}
			if pathExists(target) {
				target, ok = shortenWithDigest(dir, entry.Name(), maxLen)
				if !ok || pathExists(target) {
					return renames, fmt.Errorf("truncate %s: shortened name %s already exists", full, filepath.Base(target))
				}
			}
			if err := os.Rename(full, target); err != nil {
				return renames, fmt.Errorf("truncate %s: %w", full, err)
			}
			logger.Info("file name truncated",
				logging.String("from", filepath.Base(full)),
				logging.String("to", filepath.Base(target)),
			)
			renames = append(renames, Rename{From: full, To: target})
		}
	}
	return renames, nil
}

// shorten builds the target path for base inside dir so that the joined
// length is exactly maxLen. ok is false when the directory prefix plus the
// extension leaves no room for even a single stem byte.
func shorten(dir, base string, maxLen int) (string, bool) {
	stem, ext := splitName(base)
	budget := maxLen - len(dir) - len(string(filepath.Separator)) - len(ext)
	if budget < 1 {
		return "", false
	}
	return filepath.Join(dir, fitStem(stem, budget)+ext), true
}

// shortenWithDigest is the collision fallback: the stem tail carries an
// 8-hex FNV-1a digest of the original name, still at the exact target length.
func shortenWithDigest(dir, base string, maxLen int) (string, bool) {
	stem, ext := splitName(base)
	budget := maxLen - len(dir) - len(string(filepath.Separator)) - len(ext)
	if budget < 1 {
		return "", false
	}

	hasher := fnv.New32a()
	hasher.Write([]byte(base))
	digest := fmt.Sprintf("%08x", hasher.Sum32())

	var fitted string
	if budget <= len(digest) {
		fitted = digest[:budget]
	} else {
		fitted = fitStem(stem, budget-len(digest)-1) + "-" + digest
		// The head fit can come up short on multibyte names; repair below.
		if len(fitted) < budget {
			fitted += strings.Repeat("_", budget-len(fitted))
		}
	}
	return filepath.Join(dir, fitted+ext), true
}

// fitStem returns a strictly budget-byte string: the stem cut at a rune
// boundary, padded with underscores when a multibyte rune straddles the cut.
func fitStem(stem string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if len(stem) <= budget {
		return stem + strings.Repeat("_", budget-len(stem))
	}
	cut := stem[:budget]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + strings.Repeat("_", budget-len(cut))
}

// splitName separates the extension, treating dotfiles like ".config" as
// all-stem so hidden files never lose their leading dot.
func splitName(base string) (stem, ext string) {
	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	if stem == "" {
		return base, ""
	}
	return stem, ext
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
