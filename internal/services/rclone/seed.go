package rclone

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteConfigSeed materializes a base64-encoded rclone.conf at path. An
// existing file is left untouched so a config edited on the host survives
// daemon restarts; the seed only bootstraps first run.
func WriteConfigSeed(path, seed string) error {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat rclone config %s: %w", path, err)
	}
	decoded, err := base64.StdEncoding.DecodeString(seed)
	if err != nil {
		return fmt.Errorf("decode rclone config seed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create rclone config directory: %w", err)
	}
	if err := os.WriteFile(path, decoded, 0o600); err != nil {
		return fmt.Errorf("write rclone config %s: %w", path, err)
	}
	return nil
}
