package rclone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shuttle/internal/logging"
	"shuttle/internal/remote"
	"shuttle/internal/services"
)

// listFlags mirror the listing invocation the daemon has always used: one
// recursive pass, files only, no MIME probing, and a transaction rate cap so
// big destinations do not trip API throttling.
var listFlags = []string{"--recursive", "--files-only", "--no-mimetype", "--tpslimit", "4"}

// Config carries the construction parameters for a Client.
type Config struct {
	Binary     string
	Source     string
	Dest       string
	ConfigPath string
	ExtraFlags []string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for subprocess output and diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "rclone")
		}
	}
}

// Client wraps rclone CLI interactions and implements remote.Remote.
type Client struct {
	binary     string
	source     string
	dest       string
	configPath string
	extraFlags []string
	exec       Executor
	logger     *slog.Logger
}

// New constructs an rclone client.
func New(cfg Config, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, errors.New("rclone binary required")
	}
	if strings.TrimSpace(cfg.Source) == "" {
		return nil, errors.New("source directory required")
	}
	if strings.TrimSpace(cfg.Dest) == "" {
		return nil, errors.New("destination required")
	}
	client := &Client{
		binary:     binary,
		source:     cfg.Source,
		dest:       strings.TrimRight(cfg.Dest, "/"),
		configPath: strings.TrimSpace(cfg.ConfigPath),
		extraFlags: append([]string(nil), cfg.ExtraFlags...),
		exec:       commandExecutor{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ remote.Remote = (*Client)(nil)

// List enumerates every object under the destination root.
func (c *Client) List(ctx context.Context) ([]remote.Entry, error) {
	args := append([]string{"lsjson"}, listFlags...)
	args = append(args, c.dest)
	out, err := c.capture(ctx, "", args)
	if err != nil {
		return nil, err
	}
	entries, err := parseEntries(out)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "rclone", "lsjson", "parse listing", err)
	}
	return entries, nil
}

// Exists reports whether any object exists under relPath. rclone exits
// non-zero for both a missing path and a broken remote; the two cases are
// indistinguishable here, so any failure reports absence and the caller
// falls back to transferring the file again.
func (c *Client) Exists(ctx context.Context, relPath string) (bool, error) {
	out, err := c.capture(ctx, "", []string{"lsjson", c.remotePath(relPath)})
	if err != nil {
		c.logger.Debug("existence check failed; treating as absent",
			logging.String("path", relPath),
			logging.Error(err),
		)
		return false, nil
	}
	entries, err := parseEntries(out)
	if err != nil {
		return false, nil
	}
	return len(entries) > 0, nil
}

// Move transfers the selected staging files to the destination. rclone
// deletes each source file after it lands and prunes emptied source
// directories itself.
func (c *Client) Move(ctx context.Context, batch remote.Batch) error {
	args := []string{"move", c.source, c.dest, "--progress", "--delete-empty-src-dirs"}
	stdin := ""
	if !batch.IsAll() {
		if batch.Len() == 0 {
			return services.Wrap(services.ErrValidation, "rclone", "move", "subset batch carries no paths", nil)
		}
		args = append(args, "--include-from", "-")
		stdin = filterPatterns(batch.Paths())
	}
	return c.stream(ctx, "move", stdin, args)
}

// Delete removes one object.
func (c *Client) Delete(ctx context.Context, relPath string) error {
	return c.stream(ctx, "delete", "", []string{"delete", c.remotePath(relPath)})
}

// Zero overwrites one object with zero bytes. rcat reads stdin to EOF, and
// the command starts with stdin already closed.
func (c *Client) Zero(ctx context.Context, relPath string) error {
	return c.stream(ctx, "rcat", "", []string{"rcat", c.remotePath(relPath)})
}

// Purge bumps the zeroed object's modification time so destinations that
// keep stale versions rotate the full-size copy out of retention.
func (c *Client) Purge(ctx context.Context, relPath string) error {
	return c.stream(ctx, "touch", "", []string{"touch", c.remotePath(relPath)})
}

func (c *Client) remotePath(relPath string) string {
	return c.dest + "/" + strings.TrimPrefix(relPath, "/")
}

// run executes rclone with the configured extra flags and config path
// appended, forwarding stderr into a bounded tail for error reporting.
func (c *Client) run(ctx context.Context, stdin string, args []string, onStdout func(string)) (tail *tailBuffer, err error) {
	full := append([]string(nil), args...)
	full = append(full, c.extraFlags...)
	if c.configPath != "" {
		full = append(full, "--config", c.configPath)
	}
	tail = &tailBuffer{}
	onStderr := func(line string) {
		tail.add(line)
		c.logger.Debug("rclone stderr", logging.String("output", line))
	}
	return tail, c.exec.Run(ctx, c.binary, full, stdin, onStdout, onStderr)
}

// capture runs rclone and returns its stdout as a string.
func (c *Client) capture(ctx context.Context, stdin string, args []string) (string, error) {
	var out strings.Builder
	tail, err := c.run(ctx, stdin, args, func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "rclone", args[0], tail.String(), err)
	}
	return out.String(), nil
}

// stream runs rclone for its side effects, logging stdout at debug.
func (c *Client) stream(ctx context.Context, op, stdin string, args []string) error {
	tail, err := c.run(ctx, stdin, args, func(line string) {
		c.logger.Debug("rclone output", logging.String("output", line))
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "rclone", op, tail.String(), err)
	}
	return nil
}

// filterPatterns converts relative paths into an --include-from document.
// Filter rules glob, so metacharacters are escaped and every pattern is
// anchored at the source root; the subset stays exact even for names like
// "show [1080p].mkv".
func filterPatterns(paths []string) string {
	var b strings.Builder
	for _, path := range paths {
		b.WriteByte('/')
		b.WriteString(escapeFilter(path))
		b.WriteByte('\n')
	}
	return b.String()
}

func escapeFilter(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type lsjsonItem struct {
	Path    string `json:"Path"`
	Size    int64  `json:"Size"`
	ModTime string `json:"ModTime"`
	IsDir   bool   `json:"IsDir"`
}

func parseEntries(out string) ([]remote.Entry, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}
	var items []lsjsonItem
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, fmt.Errorf("decode lsjson output: %w", err)
	}
	entries := make([]remote.Entry, 0, len(items))
	for _, item := range items {
		if item.IsDir {
			continue
		}
		entries = append(entries, remote.Entry{
			Path:    item.Path,
			Size:    item.Size,
			ModTime: parseModTime(item.ModTime),
		})
	}
	return entries, nil
}

// parseModTime is lenient: an unparseable time sorts as oldest, which only
// accelerates eviction of an object the remote reports garbage for.
func parseModTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// tailBuffer retains the last few stderr lines for error messages.
type tailBuffer struct {
	lines []string
}

const tailLimit = 6

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLimit {
		t.lines = t.lines[len(t.lines)-tailLimit:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, " | ")
}
