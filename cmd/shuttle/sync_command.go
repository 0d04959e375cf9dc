package main

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"shuttle/internal/daemonrun"
	"shuttle/internal/journal"
	"shuttle/internal/staging"
	"shuttle/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync cycle and exit",
		Long: `Run one observe-compare-transfer cycle against the staging directory and
exit once any background eviction has drained. Intended for cron-style
deployments that do not keep the daemon running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.cliLogger(cfg)
			if err != nil {
				return err
			}

			// One-shot runs share the daemon lock so they cannot race a
			// daemon that is already watching the same staging tree.
			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "shuttle.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire daemon lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("a shuttle daemon is already running; refusing concurrent sync")
			}
			defer lock.Unlock()

			if err := staging.CheckAccess(cfg.Paths.SourceDir); err != nil {
				return err
			}

			backend, err := daemonrun.NewBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			var store *journal.Store
			if cfg.Journal.Enabled {
				store, err = journal.Open(cfg)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warn: journal unavailable: %v\n", err)
					store = nil
				} else {
					defer store.Close()
				}
			}

			runner := syncer.New(cfg, backend, syncer.WithLogger(logger), syncer.WithJournal(store))
			if err := runner.RunOnce(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync cycle complete")
			return nil
		},
	}
}
