package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return fmt.Errorf("paths.source_dir is required. Set the %s env var or edit the config file (create with 'shuttle config init')", EnvSource)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.Dest == "" {
		return fmt.Errorf("remote.dest is required. Set the %s env var or edit the config file", EnvDest)
	}
	switch c.Remote.Backend {
	case BackendRclone:
		if strings.TrimSpace(c.Rclone.Binary) == "" {
			return errors.New("rclone.binary must be set")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket must be set (or remote.dest given as \"bucket/prefix\")")
		}
	default:
		return fmt.Errorf("remote.backend: unsupported value %q (expected %q or %q)", c.Remote.Backend, BackendRclone, BackendS3)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollIntervalSeconds <= 0 {
		return errors.New("workflow.poll_interval_seconds must be positive")
	}
	if c.Workflow.IdleIntervalSeconds <= 0 {
		return errors.New("workflow.idle_interval_seconds must be positive")
	}
	if c.Workflow.MaxPathLength < 0 {
		return errors.New("workflow.max_path_length must not be negative")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.SizeLimitBytes < 0 {
		return errors.New("quota.size_limit_bytes must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
