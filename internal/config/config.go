package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	SourceDir string `toml:"source_dir"`
	LogDir    string `toml:"log_dir"`
}

// Remote contains the destination root and backend selection.
type Remote struct {
	Dest    string `toml:"dest"`
	Backend string `toml:"backend"`
}

// Rclone contains configuration for the rclone transfer backend.
type Rclone struct {
	Binary     string   `toml:"binary"`
	ConfigPath string   `toml:"config_path"`
	ConfigSeed string   `toml:"config_seed"`
	ExtraFlags []string `toml:"extra_flags"`
}

// S3 contains configuration for the native S3 transfer backend. Bucket and
// prefix default to a "bucket/prefix" parse of remote.dest when unset.
type S3 struct {
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Workflow contains loop pacing and transfer policy configuration.
type Workflow struct {
	PollIntervalSeconds int  `toml:"poll_interval_seconds"`
	IdleIntervalSeconds int  `toml:"idle_interval_seconds"`
	PartialTransfers    bool `toml:"partial_transfers"`
	Probing             bool `toml:"probing"`
	MaxPathLength       int  `toml:"max_path_length"`
}

// Quota contains the destination size bound. Zero disables eviction.
type Quota struct {
	SizeLimitBytes int64 `toml:"size_limit_bytes"`
}

// Enabled reports whether eviction should run at all.
func (q Quota) Enabled() bool { return q.SizeLimitBytes > 0 }

// Plex contains configuration for media server rescan notifications. An empty
// prefix disables the notification stage entirely.
type Plex struct {
	URL    string `toml:"url"`
	Token  string `toml:"token"`
	Prefix string `toml:"prefix"`
}

// Journal contains configuration for local transfer history.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for shuttle.
//
// Sections by subsystem:
//   - Paths: staging source directory and log directory
//   - Remote: destination root and backend selection (rclone or s3)
//   - Rclone: binary, config file, bootstrap seed, extra flags
//   - S3: bucket, credentials, endpoint for the native backend
//   - Workflow: poll pacing, partial transfer and probing policy, name length cap
//   - Quota: destination size bound driving eviction
//   - Plex: rescan notification target and library prefix
//   - Journal: local SQLite transfer/eviction history
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Remote   Remote   `toml:"remote"`
	Rclone   Rclone   `toml:"rclone"`
	S3       S3       `toml:"s3"`
	Workflow Workflow `toml:"workflow"`
	Quota    Quota    `toml:"quota"`
	Plex     Plex     `toml:"plex"`
	Journal  Journal  `toml:"journal"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shuttle/config.toml")
}

// Load locates, parses, and validates a configuration file, applying the
// environment overlay on top of file values. The returned config has all
// path fields expanded and normalized. A missing file is not an error; the
// defaults plus environment carry the container deployment case.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("shuttle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Rclone.ConfigPath, err = expandPath(c.Rclone.ConfigPath); err != nil {
		return fmt.Errorf("rclone.config_path: %w", err)
	}

	c.Remote.Dest = strings.TrimSpace(c.Remote.Dest)
	c.Remote.Backend = strings.ToLower(strings.TrimSpace(c.Remote.Backend))
	if c.Remote.Backend == "" {
		c.Remote.Backend = BackendRclone
	}
	if strings.TrimSpace(c.Rclone.Binary) == "" {
		c.Rclone.Binary = defaultRcloneBinary
	}
	flags := make([]string, 0, len(c.Rclone.ExtraFlags))
	for _, flag := range c.Rclone.ExtraFlags {
		if trimmed := strings.TrimSpace(flag); trimmed != "" {
			flags = append(flags, trimmed)
		}
	}
	c.Rclone.ExtraFlags = flags

	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
	if c.S3.Bucket == "" && c.Remote.Backend == BackendS3 {
		bucket, prefix, _ := strings.Cut(c.Remote.Dest, "/")
		c.S3.Bucket = bucket
		if c.S3.Prefix == "" {
			c.S3.Prefix = strings.Trim(prefix, "/")
		}
	}

	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	c.Plex.Prefix = strings.TrimSpace(c.Plex.Prefix)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SourceDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
