package config

// Backend names accepted by remote.backend.
const (
	BackendRclone = "rclone"
	BackendS3     = "s3"
)

const (
	defaultLogDir           = "~/.local/share/shuttle/logs"
	defaultRcloneBinary     = "rclone"
	defaultRcloneConfigPath = "/config/rclone/rclone.conf"
	defaultPollInterval     = 5
	defaultIdleInterval     = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Remote: Remote{
			Backend: BackendRclone,
		},
		Rclone: Rclone{
			Binary:     defaultRcloneBinary,
			ConfigPath: defaultRcloneConfigPath,
		},
		Workflow: Workflow{
			PollIntervalSeconds: defaultPollInterval,
			IdleIntervalSeconds: defaultIdleInterval,
			PartialTransfers:    true,
			Probing:             true,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
