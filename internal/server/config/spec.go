package config

import "time"

// ServerConfig is the root configuration for redikv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the RESP listener.
type ServerSection struct {
	// Addr is the TCP listen address.
	Addr string `koanf:"addr"`

	// MaxConnections caps concurrently served connections (0 = no cap).
	MaxConnections int `koanf:"max_connections"`

	// ReadTimeout bounds how long a partially received command may take.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds reply writes.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// IdleTimeout closes connections idle between commands.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// RateLimit is the maximum commands per second per client IP
	// (0 = disabled).
	RateLimit int `koanf:"rate_limit"`
}

// StorageSection configures the store and its persistence collaborator.
type StorageSection struct {
	// MaxMemory caps tracked memory usage in bytes (0 = no cap).
	MaxMemory int64 `koanf:"max_memory"`

	// PersistenceEnabled wires the SAVE command to a snapshot manager.
	PersistenceEnabled bool `koanf:"persistence_enabled"`

	// DataDir is the snapshot directory, required when persistence is on.
	DataDir string `koanf:"data_dir"`

	// SnapshotKeep is how many snapshot files to retain.
	SnapshotKeep int `koanf:"snapshot_keep"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
