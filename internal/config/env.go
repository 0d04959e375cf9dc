package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variable names recognized by the overlay. These exist for
// container deployments where mounting a TOML file is inconvenient; they
// always win over file values.
const (
	EnvSource           = "SOURCE"
	EnvDest             = "DEST"
	EnvRcloneConfigSeed = "RCLONE_CONFIG_SEED"
	EnvRcloneExtraFlags = "RCLONE_EXTRA_FLAGS"
	EnvMaxPathLength    = "MAX_PATH_LENGTH"
	EnvSizeLimit        = "RCLONE_SIZE_LIMIT"
	EnvPlexPrefix       = "PLEX_PREFIX"
)

// applyEnv overlays recognized environment variables onto the config. The
// lookup function is injectable so tests never touch the process environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if value, ok := lookup(EnvSource); ok {
		c.Paths.SourceDir = value
	}
	if value, ok := lookup(EnvDest); ok {
		c.Remote.Dest = value
	}
	if value, ok := lookup(EnvRcloneConfigSeed); ok {
		c.Rclone.ConfigSeed = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvRcloneExtraFlags); ok {
		c.Rclone.ExtraFlags = splitFlags(value)
	}
	if value, ok := lookup(EnvMaxPathLength); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || parsed < 0 {
			return fmt.Errorf("%s: expected a non-negative integer, got %q", EnvMaxPathLength, value)
		}
		c.Workflow.MaxPathLength = parsed
	}
	if value, ok := lookup(EnvSizeLimit); ok {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || parsed < 0 {
			return fmt.Errorf("%s: expected a non-negative byte count, got %q", EnvSizeLimit, value)
		}
		c.Quota.SizeLimitBytes = parsed
	}
	if value, ok := lookup(EnvPlexPrefix); ok {
		c.Plex.Prefix = value
	}
	return nil
}

func splitFlags(value string) []string {
	parts := strings.Split(value, ",")
	flags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			flags = append(flags, trimmed)
		}
	}
	return flags
}
