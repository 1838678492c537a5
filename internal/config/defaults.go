package config

const (
	defaultConfigPath           = "~/.config/drivetime/config.toml"
	defaultDataDir              = "~/.local/share/drivetime"
	defaultLogDir               = "~/.local/share/drivetime/logs"
	defaultDatabaseName         = "drivetime.db"
	defaultURLTemplate          = "https://maps.googleapis.com/maps/api/distancematrix/json?units=imperial&origins={{origin}}&destinations={{destination}}&key={{api_key}}"
	defaultAPIKeyTemplate       = "{{api_key}}"
	defaultLookupTimeout        = 10
	defaultMaxRequestsPerSecond = 10
	defaultUserAgent            = "DriveTime/dev"
	defaultEmptySleepMs         = 60000
	defaultRequestDelayMs       = 250
	defaultBatchSize            = 100
	defaultLockTimeoutSeconds   = 3600
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	apiKeyEnv                   = "DRIVETIME_API_KEY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Lookup: Lookup{
			URLTemplate:          defaultURLTemplate,
			APIKey:               defaultAPIKeyTemplate,
			TimeoutSeconds:       defaultLookupTimeout,
			MaxRequestsPerSecond: defaultMaxRequestsPerSecond,
			UserAgent:            defaultUserAgent,
		},
		Worker: Worker{
			EmptySleepMs:   defaultEmptySleepMs,
			RequestDelayMs: defaultRequestDelayMs,
		},
		Queue: Queue{
			BatchSize:          defaultBatchSize,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Suspend:        true,
			Fatal:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
