// Package notify tells the media server which library directories changed
// after a transfer. Failures are logged and dropped; notifications never
// influence the sync loop.
package notify

import (
	"context"
	"log/slog"
	"path"
	"sort"

	"shuttle/internal/logging"
	"shuttle/internal/services/plex"
)

// Dispatcher maps changed staging-relative directories onto library paths
// and requests rescans for them.
type Dispatcher struct {
	prefix  string
	scanner plex.Scanner
	logger  *slog.Logger
}

// NewDispatcher constructs a dispatcher. The prefix is the library-side
// root the staging tree lands under.
func NewDispatcher(prefix string, scanner plex.Scanner, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		prefix:  prefix,
		scanner: scanner,
		logger:  logging.NewComponentLogger(logger, "notify"),
	}
}

// Notify requests a rescan for each changed directory. Duplicate
// directories collapse to one request; "." means files landed directly
// under the prefix.
func (d *Dispatcher) Notify(ctx context.Context, relDirs []string) {
	if d == nil || len(relDirs) == 0 {
		return
	}
	paths := d.libraryPaths(relDirs)
	if len(paths) == 0 {
		return
	}

	results, err := d.scanner.Scan(ctx, paths)
	for _, result := range results {
		d.logger.Info("requested library rescan",
			logging.String("library", result.Library),
			logging.String("path", result.Path),
		)
	}
	if err != nil {
		d.logger.Warn("library rescan failed", logging.Error(err))
	}
}

func (d *Dispatcher) libraryPaths(relDirs []string) []string {
	seen := make(map[string]struct{}, len(relDirs))
	paths := make([]string, 0, len(relDirs))
	for _, rel := range relDirs {
		target := d.prefix
		if rel != "" && rel != "." {
			target = path.Join(d.prefix, rel)
		}
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		paths = append(paths, target)
	}
	sort.Strings(paths)
	return paths
}
