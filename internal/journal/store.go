package journal

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"shuttle/internal/config"
)

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file path; empty for a nil store.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordTransfer persists one transferring cycle. A missing ID is assigned.
func (s *Store) RecordTransfer(ctx context.Context, transfer Transfer) error {
	if s == nil {
		return nil
	}
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transfers (
            id, started_at, finished_at, mode,
            file_count, total_bytes, succeeded, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID,
		formatTime(transfer.StartedAt),
		formatTime(transfer.FinishedAt),
		transfer.Mode,
		transfer.FileCount,
		transfer.TotalBytes,
		transfer.Succeeded,
		nullableString(transfer.Error),
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// RecordEviction persists one evicted destination file.
func (s *Store) RecordEviction(ctx context.Context, eviction Eviction) error {
	if s == nil {
		return nil
	}
	if eviction.OccurredAt.IsZero() {
		eviction.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO evictions (
            occurred_at, path, size_bytes, mod_time, usage_before, usage_after
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(eviction.OccurredAt),
		eviction.Path,
		eviction.SizeBytes,
		formatTime(eviction.ModTime),
		eviction.UsageBefore,
		eviction.UsageAfter,
	)
	if err != nil {
		return fmt.Errorf("insert eviction: %w", err)
	}
	return nil
}

// RecentTransfers returns the newest transfers first, capped at limit.
func (s *Store) RecentTransfers(ctx context.Context, limit int) ([]Transfer, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, started_at, finished_at, mode, file_count, total_bytes, succeeded, error_message
         FROM transfers ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var (
			transfer            Transfer
			startedAt, finished string
			errorMessage        sql.NullString
		)
		if err := rows.Scan(
			&transfer.ID, &startedAt, &finished, &transfer.Mode,
			&transfer.FileCount, &transfer.TotalBytes, &transfer.Succeeded, &errorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfer.StartedAt = parseTime(startedAt)
		transfer.FinishedAt = parseTime(finished)
		transfer.Error = errorMessage.String
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return transfers, nil
}

// RecentEvictions returns the newest evictions first, capped at limit.
func (s *Store) RecentEvictions(ctx context.Context, limit int) ([]Eviction, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, occurred_at, path, size_bytes, mod_time, usage_before, usage_after
         FROM evictions ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query evictions: %w", err)
	}
	defer rows.Close()

	var evictions []Eviction
	for rows.Next() {
		var (
			eviction            Eviction
			occurredAt, modTime string
		)
		if err := rows.Scan(
			&eviction.ID, &occurredAt, &eviction.Path, &eviction.SizeBytes,
			&modTime, &eviction.UsageBefore, &eviction.UsageAfter,
		); err != nil {
			return nil, fmt.Errorf("scan eviction: %w", err)
		}
		eviction.OccurredAt = parseTime(occurredAt)
		eviction.ModTime = parseTime(modTime)
		evictions = append(evictions, eviction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evictions: %w", err)
	}
	return evictions, nil
}

// Totals aggregates history for the status command. Moved files and bytes
// count successful transfers only.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	if s == nil {
		return Totals{}, nil
	}
	var totals Totals
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1),
            COALESCE(SUM(CASE WHEN succeeded = 1 THEN file_count ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN succeeded = 1 THEN total_bytes ELSE 0 END), 0)
         FROM transfers`,
	).Scan(&totals.Transfers, &totals.FilesMoved, &totals.BytesMoved)
	if err != nil {
		return Totals{}, fmt.Errorf("aggregate transfers: %w", err)
	}
	err = s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1), COALESCE(SUM(size_bytes), 0) FROM evictions`,
	).Scan(&totals.Evictions, &totals.BytesEvicted)
	if err != nil {
		return Totals{}, fmt.Errorf("aggregate evictions: %w", err)
	}
	return totals, nil
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
