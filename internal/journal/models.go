package journal

import "time"

// Transfer modes.
const (
	ModeFull    = "full"
	ModePartial = "partial"
)

// Transfer records one transferring cycle.
type Transfer struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Mode       string
	FileCount  int
	TotalBytes int64
	Succeeded  bool
	Error      string
}

// Eviction records one destination file retired by quota enforcement.
type Eviction struct {
	ID          int64
	OccurredAt  time.Time
	Path        string
	SizeBytes   int64
	ModTime     time.Time
	UsageBefore int64
	UsageAfter  int64
}

// Totals aggregates history for status reporting.
type Totals struct {
	Transfers    int
	FilesMoved   int
	BytesMoved   int64
	Evictions    int
	BytesEvicted int64
}
