// Package config loads, defaults, and validates shuttle's configuration.
//
// Configuration comes from an optional TOML file plus a fixed set of
// environment variables (SOURCE, DEST, RCLONE_CONFIG_SEED, RCLONE_EXTRA_FLAGS,
// MAX_PATH_LENGTH, RCLONE_SIZE_LIMIT, PLEX_PREFIX) that override file values
// so the daemon drops into container deployments without a config file at
// all. The environment is read exactly once, inside Load; nothing below this
// package consults os.Getenv.
//
// Load resolves the file location, decodes it, applies the environment
// overlay, expands ~ in paths, and validates the result. Invalid
// configuration is fatal before the sync loop starts.
package config
