package config

import (
	"errors"
	"fmt"
	"net"
)

// Verify validates the configuration. It is called once at startup;
// invalid configuration is a startup error, never a runtime fallback.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Addr == "" {
		return errors.New("server.addr is required")
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("server.addr %q is not host:port: %w", cfg.Addr, err)
	}
	if cfg.MaxConnections < 0 {
		return errors.New("server.max_connections must not be negative")
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.MaxMemory < 0 {
		return errors.New("storage.max_memory must not be negative")
	}
	if cfg.PersistenceEnabled {
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required when persistence is enabled")
		}
		if cfg.SnapshotKeep < 1 {
			return errors.New("storage.snapshot_keep must be at least 1")
		}
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr %q is not host:port: %w", cfg.Addr, err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch cfg.Format {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
