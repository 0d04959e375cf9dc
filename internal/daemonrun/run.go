// Package daemonrun wires configuration, logging, locking, and the transfer
// backend into a running shuttle daemon process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"shuttle/internal/config"
	"shuttle/internal/journal"
	"shuttle/internal/logging"
	"shuttle/internal/remote"
	"shuttle/internal/services"
	"shuttle/internal/services/rclone"
	"shuttle/internal/services/s3"
	"shuttle/internal/staging"
	"shuttle/internal/syncer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// Version and ConfigPath feed the startup banner; both are optional.
	Version    string
	ConfigPath string
}

// Run starts the shuttle daemon runtime loop and blocks until the sync loop
// exits or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shuttle-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shuttle.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "shuttle-*.log", Exclude: []string{logPath}},
	)

	lockPath := filepath.Join(cfg.Paths.LogDir, "shuttle.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another shuttle daemon is already running (lock held at %s)", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	pidPath := filepath.Join(cfg.Paths.LogDir, "shuttle.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if err := staging.CheckAccess(cfg.Paths.SourceDir); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "startup", "staging directory is not usable", err)
	}

	backend, err := NewBackend(signalCtx, cfg, logger)
	if err != nil {
		return err
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg)
		if err != nil {
			logger.Warn("journal unavailable; continuing without transfer history",
				logging.Error(err),
				logging.String(logging.FieldEventType, "journal_open_failed"),
			)
			store = nil
		} else {
			defer store.Close()
		}
	}

	logStartupSnapshot(logger, cfg, runID, opts)

	runner := syncer.New(cfg, backend, syncer.WithLogger(logger), syncer.WithJournal(store))
	runErr := runner.Run(signalCtx)
	logger.Info("shuttle daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return runErr
}

// NewBackend constructs the transfer backend selected by remote.backend. The
// rclone path also performs the binary lookup and the write-once config seed
// bootstrap so misconfiguration surfaces before the first cycle.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (remote.Remote, error) {
	switch cfg.Remote.Backend {
	case config.BackendS3:
		return s3.New(ctx, s3.Config{
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Source:         cfg.Paths.SourceDir,
		}, s3.WithLogger(logger))
	case config.BackendRclone:
		if _, err := exec.LookPath(cfg.Rclone.Binary); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "daemon", "startup",
				fmt.Sprintf("rclone binary %q not found", cfg.Rclone.Binary), err)
		}
		if err := rclone.WriteConfigSeed(cfg.Rclone.ConfigPath, cfg.Rclone.ConfigSeed); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "daemon", "startup", "seed rclone config", err)
		}
		return rclone.New(rclone.Config{
			Binary:     cfg.Rclone.Binary,
			Source:     cfg.Paths.SourceDir,
			Dest:       cfg.Remote.Dest,
			ConfigPath: cfg.Rclone.ConfigPath,
			ExtraFlags: cfg.Rclone.ExtraFlags,
		}, rclone.WithLogger(logger))
	default:
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "startup",
			fmt.Sprintf("unknown backend %q", cfg.Remote.Backend), nil)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shuttle.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartupSnapshot(logger *slog.Logger, cfg *config.Config, runID string, opts Options) {
	if logger == nil || cfg == nil {
		return
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	logger.Info("starting shuttle daemon",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("version", version),
		logging.String("run_id", runID),
		logging.Int("pid", os.Getpid()),
		logging.String("config_path", opts.ConfigPath),
		logging.String("backend", cfg.Remote.Backend),
		logging.String("dest", cfg.Remote.Dest),
		logging.String("source_dir", cfg.Paths.SourceDir),
		logging.Bool("quota_enabled", cfg.Quota.Enabled()),
		logging.Int64("quota_limit_bytes", cfg.Quota.SizeLimitBytes),
		logging.Bool("partial_transfers", cfg.Workflow.PartialTransfers),
		logging.Bool("probing", cfg.Workflow.Probing),
		logging.Bool("journal_enabled", cfg.Journal.Enabled),
		logging.Bool("plex_enabled", cfg.Plex.Prefix != ""),
	)
}
