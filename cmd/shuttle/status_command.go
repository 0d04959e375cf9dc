package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shuttle/internal/config"
	"shuttle/internal/daemonrun"
	"shuttle/internal/journal"
	"shuttle/internal/logging"
	"shuttle/internal/remote"
	"shuttle/internal/staging"
)

const statusHistoryLimit = 5

type statusReport struct {
	staging    staging.Usage
	stagingErr error

	destEntries []remote.Entry
	destErr     error

	journalOn  bool
	totals     journal.Totals
	transfers  []journal.Transfer
	evictions  []journal.Eviction
	journalErr error
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show staging usage, destination usage, and recent history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			report := gatherStatus(cmd.Context(), cfg)
			renderStatus(cmd.OutOrStdout(), cfg, report)
			return nil
		},
	}
}

func gatherStatus(ctx context.Context, cfg *config.Config) statusReport {
	var report statusReport

	report.staging, report.stagingErr = staging.Stats(cfg.Paths.SourceDir)

	backend, err := daemonrun.NewBackend(ctx, cfg, logging.NewNop())
	if err != nil {
		report.destErr = err
	} else {
		report.destEntries, report.destErr = backend.List(ctx)
	}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg)
		if err != nil {
			report.journalOn = true
			report.journalErr = err
			return report
		}
		defer store.Close()
		report.journalOn = true
		report.totals, report.journalErr = store.Totals(ctx)
		if report.journalErr == nil {
			report.transfers, report.journalErr = store.RecentTransfers(ctx, statusHistoryLimit)
		}
		if report.journalErr == nil {
			report.evictions, report.journalErr = store.RecentEvictions(ctx, statusHistoryLimit)
		}
	}
	return report
}

func renderStatus(w io.Writer, cfg *config.Config, report statusReport) {
	pal := newPalette(w)

	for _, line := range renderSectionHeader("Staging", pal) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderStatusLine("Path", statusInfo, cfg.Paths.SourceDir, pal))
	if report.stagingErr != nil {
		fmt.Fprintln(w, renderStatusLine("Contents", statusError, report.stagingErr.Error(), pal))
	} else {
		detail := fmt.Sprintf("%d files, %s (disk free %s)",
			report.staging.FileCount,
			humanize.IBytes(uint64(report.staging.TotalBytes)),
			humanize.IBytes(report.staging.DiskFree),
		)
		fmt.Fprintln(w, renderStatusLine("Contents", statusOK, detail, pal))
	}
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Destination", pal) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderStatusLine("Target", statusInfo,
		fmt.Sprintf("%s (%s backend)", cfg.Remote.Dest, cfg.Remote.Backend), pal))
	fmt.Fprintln(w, destinationUsageLine(cfg, report, pal))
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Policy", pal) {
		fmt.Fprintln(w, line)
	}
	quotaDetail := "disabled"
	if cfg.Quota.Enabled() {
		quotaDetail = humanize.IBytes(uint64(cfg.Quota.SizeLimitBytes))
	}
	fmt.Fprintln(w, renderStatusLine("Quota", statusInfo, quotaDetail, pal))
	fmt.Fprintln(w, renderStatusLine("Partial", statusInfo, yesNo(cfg.Workflow.PartialTransfers), pal))
	fmt.Fprintln(w, renderStatusLine("Probing", statusInfo, yesNo(cfg.Workflow.Probing), pal))
	plexDetail := "disabled"
	if cfg.Plex.Prefix != "" {
		plexDetail = fmt.Sprintf("enabled (prefix %s)", cfg.Plex.Prefix)
	}
	fmt.Fprintln(w, renderStatusLine("Plex", statusInfo, plexDetail, pal))
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("History", pal) {
		fmt.Fprintln(w, line)
	}
	renderHistory(w, report, pal)
}

func destinationUsageLine(cfg *config.Config, report statusReport, pal palette) string {
	if report.destErr != nil {
		return renderStatusLine("Usage", statusError, "unreachable: "+report.destErr.Error(), pal)
	}
	usage := remote.TotalSize(report.destEntries)
	if !cfg.Quota.Enabled() {
		detail := fmt.Sprintf("%s across %d files (no quota)",
			humanize.IBytes(uint64(usage)), len(report.destEntries))
		return renderStatusLine("Usage", statusInfo, detail, pal)
	}

	limit := cfg.Quota.SizeLimitBytes
	percent := float64(usage) / float64(limit) * 100
	kind := statusOK
	switch {
	case usage >= limit:
		kind = statusError
	case percent >= 90:
		kind = statusWarn
	}
	detail := fmt.Sprintf("%s of %s (%.1f%%), %d files",
		humanize.IBytes(uint64(usage)),
		humanize.IBytes(uint64(limit)),
		percent,
		len(report.destEntries),
	)
	return renderStatusLine("Usage", kind, detail, pal)
}

func renderHistory(w io.Writer, report statusReport, pal palette) {
	if !report.journalOn {
		fmt.Fprintln(w, renderStatusLine("Journal", statusInfo, "disabled", pal))
		return
	}
	if report.journalErr != nil {
		fmt.Fprintln(w, renderStatusLine("Journal", statusError, report.journalErr.Error(), pal))
		return
	}

	totals := fmt.Sprintf("%d transfers (%s moved), %d evictions (%s reclaimed)",
		report.totals.Transfers,
		humanize.IBytes(uint64(report.totals.BytesMoved)),
		report.totals.Evictions,
		humanize.IBytes(uint64(report.totals.BytesEvicted)),
	)
	fmt.Fprintln(w, renderStatusLine("Totals", statusInfo, totals, pal))

	if len(report.transfers) > 0 {
		rows := make([][]string, 0, len(report.transfers))
		for _, t := range report.transfers {
			result := "ok"
			if !t.Succeeded {
				result = "failed"
			}
			rows = append(rows, []string{
				humanize.Time(t.FinishedAt),
				t.Mode,
				strconv.Itoa(t.FileCount),
				humanize.IBytes(uint64(t.TotalBytes)),
				result,
			})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Finished", "Mode", "Files", "Size", "Result"}, rows, 3, 4))
	}

	if len(report.evictions) > 0 {
		rows := make([][]string, 0, len(report.evictions))
		for _, e := range report.evictions {
			rows = append(rows, []string{
				humanize.Time(e.OccurredAt),
				e.Path,
				humanize.IBytes(uint64(e.SizeBytes)),
			})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Evicted", "Path", "Size"}, rows, 3))
	}
}
