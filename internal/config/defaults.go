package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/fabric/tabtrail",
			SQLiteFile:        "tabtrail.db",
			SQLiteJournalMode: "wal",
			Backend:           "sqlite",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8722,
			AuthToken:      "",
			MaxRequestSize: 10485760,
		},
		Capture: CaptureConfig{
			DenylistDomains: DefaultDenylistDomains(),
			DenylistRegex:   []string{},
			TrackAllTabs:    true,
		},
		Retention: RetentionConfig{
			Days:         30,
			PruneOrphans: true,
		},
		Backend: BackendConfig{
			URL:                  "",
			APISecretKey:         "",
			VerifyTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "tabtrail.log",
		},
	}
}
