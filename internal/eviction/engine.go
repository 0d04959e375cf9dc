package eviction

import (
	"context"
	"log/slog"

	"shuttle/internal/journal"
	"shuttle/internal/logging"
	"shuttle/internal/remote"
)

// Engine enforces the destination size quota.
type Engine struct {
	remote  remote.Remote
	quota   int64
	journal *journal.Store
	logger  *slog.Logger
}

// NewEngine constructs an engine bound to one destination. A nil journal
// disables history recording.
func NewEngine(rem remote.Remote, quota int64, jnl *journal.Store, logger *slog.Logger) *Engine {
	return &Engine{
		remote:  rem,
		quota:   quota,
		journal: jnl,
		logger:  logging.NewComponentLogger(logger, "eviction"),
	}
}

// EnforcePass runs one synchronous enforcement pass: list the destination,
// then retire oldest files until usage drops below the quota. The listing
// is taken once per pass; each eviction adjusts the in-memory total.
//
// A listing failure skips the pass with a warning, since a later trigger
// retries anyway. An eviction failure is returned: a destination that
// accepts transfers but refuses deletes would otherwise grow without bound.
func (e *Engine) EnforcePass(ctx context.Context) error {
	entries, err := e.remote.List(ctx)
	if err != nil {
		e.logger.Warn("destination listing failed; skipping eviction pass", logging.Error(err))
		return nil
	}
	usage := remote.TotalSize(entries)
	if usage < e.quota {
		e.logger.Debug("destination under quota",
			logging.Int64("usage_bytes", usage),
			logging.Int64("quota_bytes", e.quota),
			logging.Int("file_count", len(entries)),
		)
		return nil
	}

	for usage >= e.quota && len(entries) > 0 {
		idx := oldestIndex(entries)
		victim := entries[idx]
		if err := e.evict(ctx, victim.Path); err != nil {
			return err
		}
		before := usage
		usage -= victim.Size
		entries = append(entries[:idx], entries[idx+1:]...)

		e.logger.Info("evicted destination file",
			logging.String("path", victim.Path),
			logging.Int64("size_bytes", victim.Size),
			logging.Time("mod_time", victim.ModTime),
			logging.Int64("usage_before", before),
			logging.Int64("usage_after", usage),
			logging.Int64("quota_bytes", e.quota),
		)
		if err := e.journal.RecordEviction(ctx, journal.Eviction{
			Path:        victim.Path,
			SizeBytes:   victim.Size,
			ModTime:     victim.ModTime,
			UsageBefore: before,
			UsageAfter:  usage,
		}); err != nil {
			e.logger.Warn("recording eviction failed", logging.Error(err))
		}
	}
	return nil
}

// evict retires one file. The zero-byte overwrite lands first so
// destinations that keep deleted or stale versions rotate a zero-size copy
// instead of the full-size one; the touch forces that rotation, and the
// delete reclaims the live object.
func (e *Engine) evict(ctx context.Context, path string) error {
	if err := e.remote.Zero(ctx, path); err != nil {
		return err
	}
	if err := e.remote.Purge(ctx, path); err != nil {
		return err
	}
	return e.remote.Delete(ctx, path)
}

// oldestIndex picks the victim: oldest mod time, ties broken by
// lexicographically smallest path so repeated passes are deterministic.
func oldestIndex(entries []remote.Entry) int {
	idx := 0
	for i := 1; i < len(entries); i++ {
		candidate, best := entries[i], entries[idx]
		if candidate.ModTime.Before(best.ModTime) {
			idx = i
			continue
		}
		if candidate.ModTime.Equal(best.ModTime) && candidate.Path < best.Path {
			idx = i
		}
	}
	return idx
}
