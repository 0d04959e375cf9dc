package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shuttle/internal/daemonrun"
	"shuttle/internal/eviction"
	"shuttle/internal/journal"
	"shuttle/internal/remote"
)

func newEvictCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "evict",
		Short: "Run a single quota enforcement pass against the destination",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()

			if !cfg.Quota.Enabled() {
				fmt.Fprintln(out, "Quota is disabled (quota.size_limit_bytes = 0); nothing to evict")
				return nil
			}

			logger, err := ctx.cliLogger(cfg)
			if err != nil {
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

			engine := eviction.NewEngine(backend, cfg.Quota.SizeLimitBytes, store, logger)
			if err := engine.EnforcePass(cmd.Context()); err != nil {
				return err
			}

			entries, err := backend.List(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, "Eviction pass complete (destination usage unavailable)")
				return nil
			}
			usage := remote.TotalSize(entries)
			fmt.Fprintf(out, "Eviction pass complete: %s of %s used across %d files\n",
				humanize.IBytes(uint64(usage)),
				humanize.IBytes(uint64(cfg.Quota.SizeLimitBytes)),
				len(entries),
			)
			return nil
		},
	}
}
