package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/journal"
	"shuttle/internal/remote"
	"shuttle/internal/staging"
)

func TestRenderStatusLinePlain(t *testing.T) {
	got := renderStatusLine("Quota", statusError, "over limit", palette{})
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Quota:", "[ERROR] over limit")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineColored(t *testing.T) {
	got := renderStatusLine("Quota", statusOK, "fine", palette{enabled: true})
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestNewPaletteNonFileWriter(t *testing.T) {
	if newPalette(io.Discard).enabled {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestDestinationUsageLineKinds(t *testing.T) {
	cfg := config.Default()
	cfg.Quota.SizeLimitBytes = 1000

	cases := []struct {
		name  string
		usage int64
		want  string
	}{
		{name: "comfortable", usage: 500, want: "[OK]"},
		{name: "near quota", usage: 950, want: "[WARN]"},
		{name: "over quota", usage: 1200, want: "[ERROR]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := statusReport{destEntries: []remote.Entry{{Path: "a.mkv", Size: tc.usage}}}
			line := destinationUsageLine(&cfg, report, palette{})
			requireContains(t, line, tc.want)
		})
	}
}

func TestDestinationUsageLineNoQuota(t *testing.T) {
	cfg := config.Default()
	report := statusReport{destEntries: []remote.Entry{{Path: "a.mkv", Size: 100}}}
	line := destinationUsageLine(&cfg, report, palette{})
	requireContains(t, line, "no quota")
	requireContains(t, line, "[INFO]")
}

func TestDestinationUsageLineUnreachable(t *testing.T) {
	cfg := config.Default()
	report := statusReport{destErr: fmt.Errorf("connection refused")}
	line := destinationUsageLine(&cfg, report, palette{})
	requireContains(t, line, "[ERROR]")
	requireContains(t, line, "connection refused")
}

func TestRenderStatusSectionsAndHistory(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.SourceDir = "/srv/staging"
	cfg.Remote.Dest = "remote:media"
	cfg.Quota.SizeLimitBytes = 1 << 30
	cfg.Plex.Prefix = "/media/library"

	now := time.Now()
	report := statusReport{
		staging:     staging.Usage{FileCount: 3, TotalBytes: 300, DiskFree: 1 << 40},
		destEntries: []remote.Entry{{Path: "shows/pilot.mkv", Size: 1 << 20}},
		journalOn:   true,
		totals:      journal.Totals{Transfers: 2, FilesMoved: 5, BytesMoved: 500, Evictions: 1, BytesEvicted: 100},
		transfers: []journal.Transfer{
			{FinishedAt: now, Mode: journal.ModeFull, FileCount: 3, TotalBytes: 300, Succeeded: true},
			{FinishedAt: now.Add(-time.Hour), Mode: journal.ModePartial, FileCount: 2, TotalBytes: 200, Succeeded: false},
		},
		evictions: []journal.Eviction{
			{OccurredAt: now, Path: "old/movie.mkv", SizeBytes: 100},
		},
	}

	var buf bytes.Buffer
	renderStatus(&buf, &cfg, report)
	out := buf.String()

	for _, section := range []string{"== Staging ==", "== Destination ==", "== Policy ==", "== History =="} {
		requireContains(t, out, section)
	}
	requireContains(t, out, "/srv/staging")
	requireContains(t, out, "remote:media")
	requireContains(t, out, "enabled (prefix /media/library)")
	requireContains(t, out, "2 transfers")
	requireContains(t, out, "full")
	requireContains(t, out, "partial")
	requireContains(t, out, "failed")
	requireContains(t, out, "old/movie.mkv")
}

func TestRenderStatusJournalDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.SourceDir = "/srv/staging"
	cfg.Remote.Dest = "remote:media"

	var buf bytes.Buffer
	renderStatus(&buf, &cfg, statusReport{})
	requireContains(t, buf.String(), "Journal:")
	requireContains(t, buf.String(), "disabled")
}
