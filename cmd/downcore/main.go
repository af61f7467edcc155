// Command downcore wires the execution plane into a long-running process:
// it loads configuration, starts the core engine, and blocks until an OS
// signal requests shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"downcore/internal/config"
	"downcore/internal/core"
	"downcore/internal/logger"
)

// Version is set at build time via ldflags.
var Version string

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir, err := dataDirectory()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return err
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = filepath.Join(dataDir, "downloads")
	}

	if err := logger.Init(dataDir); err != nil {
		fmt.Printf("warning: failed to initialize logger: %v\n", err)
	}
	logger.Log.Info().
		Str("version", Version).
		Str("dataDir", dataDir).
		Str("storageRoot", cfg.StorageRoot).
		Msg("downcore starting up")

	engine, err := core.New(cfg)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to initialize engine")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info().Msg("engine ready")
	<-ctx.Done()

	logger.Log.Info().Msg("shutdown signal received, draining in-flight jobs")
	engine.Shutdown(true)
	logger.Log.Info().Msg("downcore stopped")

	return nil
}

// dataDirectory resolves where config, logs, and (by default) downloaded
// files live, honoring an explicit override before falling back to the
// platform's per-user config directory.
func dataDirectory() (string, error) {
	if v := os.Getenv("DOWNCORE_DATA_DIR"); v != "" {
		return v, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "downcore"), nil
}
