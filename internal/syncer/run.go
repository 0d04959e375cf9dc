package syncer

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"shuttle/internal/journal"
	"shuttle/internal/logging"
	"shuttle/internal/remote"
	"shuttle/internal/scan"
	"shuttle/internal/services"
	"shuttle/internal/truncate"
)

// Run polls until the context is canceled or a cycle fails fatally. Both
// exits drain the eviction flight before returning, so no background pass
// outlives the loop.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Info("sync loop started",
		logging.Duration("poll_interval", s.pollInterval),
		logging.Duration("idle_interval", s.idleInterval),
		logging.Bool("partial_transfers", s.cfg.Workflow.PartialTransfers),
		logging.Bool("probing", s.prober != nil),
		logging.Bool("quota_enforcement", s.engine != nil),
	)
	for {
		select {
		case <-ctx.Done():
			return s.stop()
		default:
		}

		wait, err := s.cycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return s.stop()
			}
			s.logger.Error("sync loop failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "sync_fatal"),
			)
			s.drain()
			return err
		}

		select {
		case <-ctx.Done():
			return s.stop()
		case <-time.After(wait):
		}
	}
}

// RunOnce executes a single cycle and drains any eviction pass it
// triggered. Cancellation mid-transfer reports success, matching the
// loop's clean-shutdown handling.
func (s *Syncer) RunOnce(ctx context.Context) error {
	_, err := s.cycle(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if joinErr := s.flight.Join(); joinErr != nil && err == nil {
		err = joinErr
	}
	return err
}

func (s *Syncer) stop() error {
	s.logger.Info("sync loop stopped")
	s.drain()
	return nil
}

func (s *Syncer) drain() {
	if err := s.flight.Join(); err != nil {
		s.logger.Warn("eviction pass failed during drain", logging.Error(err))
	}
}

// cycle runs one iteration and returns how long to wait before the next.
func (s *Syncer) cycle(ctx context.Context) (time.Duration, error) {
	ctx = services.WithCycleID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)

	// A background eviction failure surfaces at the next cycle boundary.
	if err := s.flight.Err(); err != nil {
		return 0, err
	}

	if maxLen := s.cfg.Workflow.MaxPathLength; maxLen > 0 {
		renames, err := truncate.Apply(s.cfg.Paths.SourceDir, maxLen, logger)
		if err != nil {
			return 0, services.Wrap(services.ErrValidation, "syncer", "truncate", "shorten over-long file names", err)
		}
		if len(renames) > 0 {
			logger.Info("shortened over-long file names", logging.Int("count", len(renames)))
		}
	}

	snapshot, err := scan.Tree(s.cfg.Paths.SourceDir)
	if err != nil {
		logger.Warn("staging scan failed; no progress this cycle",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check staging directory permissions"),
		)
		return s.pollInterval, nil
	}

	if len(snapshot) == 0 {
		s.detector.Reset()
		logger.Debug("staging empty; idling")
		return s.idleInterval, nil
	}

	settled := s.detector.Observe(snapshot)
	if !s.cfg.Workflow.PartialTransfers && len(settled) != len(snapshot) {
		logger.Debug("waiting for the whole tree to settle",
			logging.Int("settled", len(settled)),
			logging.Int("total", len(snapshot)),
		)
		return s.pollInterval, nil
	}
	if len(settled) == 0 {
		logger.Debug("no settled files yet", logging.Int("total", len(snapshot)))
		return s.pollInterval, nil
	}

	selection := settled
	if s.prober != nil {
		if existing := s.prober.Existing(ctx, selection); len(existing) > 0 {
			logger.Info("destination already holds part of the batch; resuming those files first",
				logging.Int("files", len(existing)),
			)
			selection = existing
		}
	}

	s.kickEviction(ctx, logger, "pre-transfer")

	batch := remote.Subset(selection)
	mode := journal.ModePartial
	if len(selection) == len(snapshot) {
		batch = remote.All()
		mode = journal.ModeFull
	}
	totalBytes := selectionBytes(snapshot, selection)

	started := time.Now()
	moveErr := s.remote.Move(ctx, batch)
	finished := time.Now()

	record := journal.Transfer{
		StartedAt:  started,
		FinishedAt: finished,
		Mode:       mode,
		FileCount:  len(selection),
		TotalBytes: totalBytes,
		Succeeded:  moveErr == nil,
	}
	if moveErr != nil {
		record.Error = moveErr.Error()
	}
	if err := s.journal.RecordTransfer(ctx, record); err != nil {
		logger.Warn("recording transfer failed", logging.Error(err))
	}

	if moveErr != nil {
		// The executor kills the subprocess on cancellation, so the error
		// surfaces as a tool failure; the context tells shutdown apart.
		if errors.Is(moveErr, context.Canceled) || ctx.Err() != nil {
			return 0, context.Canceled
		}
		return 0, moveErr
	}

	logger.Info("transfer complete",
		logging.String("mode", mode),
		logging.Int("files", len(selection)),
		logging.Int64("bytes", totalBytes),
		logging.Duration("duration", finished.Sub(started)),
	)

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, parentDirs(selection))
	}

	s.kickEviction(ctx, logger, "post-transfer")

	return s.pollInterval, nil
}

// kickEviction pushes an enforcement pass into the background. The pass
// detaches from the cycle's cancellation so an in-flight pass completes
// during shutdown and is collected by drain.
func (s *Syncer) kickEviction(ctx context.Context, logger *slog.Logger, trigger string) {
	if s.engine == nil {
		return
	}
	passCtx := context.WithoutCancel(ctx)
	if !s.flight.TryStart(func() error { return s.engine.EnforcePass(passCtx) }) {
		logger.Debug("eviction already running; trigger dropped",
			logging.String("trigger", trigger),
		)
	}
}

func selectionBytes(snapshot scan.Snapshot, selection []string) int64 {
	var total int64
	for _, rel := range selection {
		if record, ok := snapshot[rel]; ok {
			total += record.Size
		}
	}
	return total
}

func parentDirs(paths []string) []string {
	dirs := make([]string, 0, len(paths))
	for _, rel := range paths {
		dirs = append(dirs, path.Dir(rel))
	}
	return dirs
}
