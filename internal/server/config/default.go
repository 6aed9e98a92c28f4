package config

import "time"

// Default configuration values.
const (
	DefaultAddr           = "127.0.0.1:6379"
	DefaultMaxConnections = 1000
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute

	DefaultMaxMemory    = int64(1024 * 1024 * 1024) // 1 GiB
	DefaultDataDir      = "./data"
	DefaultSnapshotKeep = 3

	DefaultMetricsAddr = "127.0.0.1:9121"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:           DefaultAddr,
			MaxConnections: DefaultMaxConnections,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			IdleTimeout:    DefaultIdleTimeout,
			RateLimit:      0,
		},
		Storage: StorageSection{
			MaxMemory:          DefaultMaxMemory,
			PersistenceEnabled: false,
			DataDir:            DefaultDataDir,
			SnapshotKeep:       DefaultSnapshotKeep,
		},
		Metrics: MetricsSection{
			Enabled: false,
			Addr:    DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
