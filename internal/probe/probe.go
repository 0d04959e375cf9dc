// Package probe checks which settled staging files already exist at the
// destination. A populated answer redirects the next transfer at the
// interrupted files, so a restart resumes instead of re-sending everything.
package probe

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"shuttle/internal/logging"
)

// Checker reports whether an object exists under a destination-relative
// path. remote.Remote satisfies it.
type Checker interface {
	Exists(ctx context.Context, relPath string) (bool, error)
}

// checkConcurrency caps in-flight existence checks so a large settled set
// does not hammer the destination.
const checkConcurrency = 5

// Prober fans existence checks over a bounded worker group.
type Prober struct {
	checker Checker
	logger  *slog.Logger
}

// New constructs a prober over the given checker.
func New(checker Checker, logger *slog.Logger) *Prober {
	return &Prober{
		checker: checker,
		logger:  logging.NewComponentLogger(logger, "probe"),
	}
}

// Existing filters candidates down to the ones already present at the
// destination, preserving candidate order. A failed check counts as absent
// and is logged at debug; no failure aborts the batch, and every check
// completes before Existing returns.
func (p *Prober) Existing(ctx context.Context, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}
	present := make([]bool, len(candidates))
	group := new(errgroup.Group)
	group.SetLimit(checkConcurrency)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		group.Go(func() error {
			ok, err := p.checker.Exists(ctx, candidate)
			if err != nil {
				p.logger.Debug("existence check failed; treating as absent",
					logging.String("path", candidate),
					logging.Error(err),
				)
				return nil
			}
			present[i] = ok
			return nil
		})
	}
	// Workers never return errors; Wait only serves as the barrier.
	_ = group.Wait()

	existing := make([]string, 0, len(candidates))
	for i, ok := range present {
		if ok {
			existing = append(existing, candidates[i])
		}
	}
	return existing
}
