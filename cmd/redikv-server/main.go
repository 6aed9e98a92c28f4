package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/redikv/redikv-go/internal/infra/buildinfo"
	"github.com/redikv/redikv-go/internal/infra/confloader"
	"github.com/redikv/redikv-go/internal/infra/shutdown"
	"github.com/redikv/redikv-go/internal/server/config"
	"github.com/redikv/redikv-go/internal/server/respserver"
	"github.com/redikv/redikv-go/internal/storage/snapshot"
	"github.com/redikv/redikv-go/internal/store"
	"github.com/redikv/redikv-go/internal/telemetry/logger"
	"github.com/redikv/redikv-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("redikv-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	runID := ulid.Make().String()
	log.Info("starting redikv-server",
		"version", buildinfo.Version,
		"run_id", runID,
		"config", *configFile)

	st := store.New(store.WithMaxMemory(cfg.Storage.MaxMemory))

	dispatcherOpts := []respserver.DispatcherOption{
		respserver.WithRunID(runID),
		respserver.WithListenAddr(cfg.Server.Addr),
	}

	var saver *snapshot.Saver
	if cfg.Storage.PersistenceEnabled {
		manager, err := snapshot.NewManager(snapshot.Config{
			Dir:            cfg.Storage.DataDir,
			RetentionCount: cfg.Storage.SnapshotKeep,
		})
		if err != nil {
			return fmt.Errorf("init snapshots: %w", err)
		}

		info, err := manager.LoadLatest(st)
		switch {
		case err == nil:
			log.Info("restored snapshot", "id", info.ID, "keys", info.KeyCount)
		case errors.Is(err, snapshot.ErrNoSnapshots):
			log.Info("no snapshot to restore", "dir", cfg.Storage.DataDir)
		default:
			return fmt.Errorf("restore snapshot: %w", err)
		}

		saver = snapshot.NewSaver(manager, st)
		dispatcherOpts = append(dispatcherOpts, respserver.WithPersister(saver))
	}

	dispatcher := respserver.NewDispatcher(st, dispatcherOpts...)

	var metrics *metric.Registry
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics = metric.NewRegistry(st)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	srv := respserver.New(&respserver.Config{
		Addr:           cfg.Server.Addr,
		MaxConnections: cfg.Server.MaxConnections,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RateLimit:      cfg.Server.RateLimit,
		ReadBufferSize: 4096,
	}, dispatcher, log, metrics)

	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	watcher := startConfigWatcher(*configFile, log)

	handler := shutdown.NewHandler(shutdownTimeout)
	if watcher != nil {
		handler.OnShutdown(func(context.Context) error {
			return watcher.Stop()
		})
	}
	if metricsServer != nil {
		handler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down metrics endpoint")
			return metricsServer.Shutdown(ctx)
		})
	}
	if saver != nil {
		handler.OnShutdown(func(context.Context) error {
			log.Info("writing final snapshot")
			return saver.Save()
		})
	}
	handler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down resp server")
		return srv.Shutdown(ctx)
	})

	log.Info("server started, press Ctrl+C to stop")
	if err := handler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// startConfigWatcher hot-reloads the log level when the config file
// changes. Other settings need a restart.
func startConfigWatcher(configFile string, log *slog.Logger) *confloader.Watcher {
	if configFile == "" {
		return nil
	}

	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := watcher.Watch(configFile); err != nil {
		log.Warn("config watcher unavailable", "error", err)
		_ = watcher.Stop()
		return nil
	}

	watcher.OnChange(func(string) {
		cfg, err := loadConfig(configFile)
		if err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	go watcher.Start()
	return watcher
}
