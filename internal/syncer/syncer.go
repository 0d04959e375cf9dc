package syncer

import (
	"log/slog"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/eviction"
	"shuttle/internal/journal"
	"shuttle/internal/logging"
	"shuttle/internal/notify"
	"shuttle/internal/probe"
	"shuttle/internal/remote"
	"shuttle/internal/scan"
	"shuttle/internal/services/plex"
)

// Syncer owns the sync loop and its collaborators.
type Syncer struct {
	cfg     *config.Config
	remote  remote.Remote
	journal *journal.Store
	scanner plex.Scanner
	logger  *slog.Logger

	detector   *scan.Detector
	prober     *probe.Prober
	engine     *eviction.Engine
	flight     *eviction.Flight
	dispatcher *notify.Dispatcher

	pollInterval time.Duration
	idleInterval time.Duration
}

// Option configures the syncer.
type Option func(*Syncer)

// WithLogger attaches the daemon logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithJournal records transfers and evictions in the given store.
func WithJournal(store *journal.Store) Option {
	return func(s *Syncer) {
		s.journal = store
	}
}

// WithScanner overrides the media server scanner (primarily for tests).
func WithScanner(scanner plex.Scanner) Option {
	return func(s *Syncer) {
		if scanner != nil {
			s.scanner = scanner
		}
	}
}

// New builds a syncer from configuration. Quota enforcement, probing, and
// notifications each wire in only when configured.
func New(cfg *config.Config, rem remote.Remote, opts ...Option) *Syncer {
	s := &Syncer{
		cfg:          cfg,
		remote:       rem,
		logger:       logging.NewNop(),
		detector:     scan.NewDetector(),
		flight:       &eviction.Flight{},
		pollInterval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		idleInterval: time.Duration(cfg.Workflow.IdleIntervalSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Workflow.Probing {
		s.prober = probe.New(rem, s.logger)
	}
	if cfg.Quota.Enabled() {
		s.engine = eviction.NewEngine(rem, cfg.Quota.SizeLimitBytes, s.journal, s.logger)
	}
	if cfg.Plex.Prefix != "" {
		if s.scanner == nil {
			s.scanner = scannerFromConfig(cfg, s.logger)
		}
		s.dispatcher = notify.NewDispatcher(cfg.Plex.Prefix, s.scanner, s.logger)
	}
	s.logger = logging.NewComponentLogger(s.logger, "syncer")
	return s
}

func scannerFromConfig(cfg *config.Config, logger *slog.Logger) plex.Scanner {
	if cfg.Plex.URL == "" || cfg.Plex.Token == "" {
		return plex.NewNopScanner()
	}
	return plex.NewHTTPScanner(cfg.Plex.URL, cfg.Plex.Token, nil, logger)
}
