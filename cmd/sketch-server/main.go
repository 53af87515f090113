// Command sketch-server runs the collaborative sketch board sync server:
// a sequenced operation log with shared undo/redo, fanned out to every
// connected participant over websockets.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-sketch/pkg/config"
	"github.com/dd0wney/cluso-sketch/pkg/hub"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/oplog"
	"github.com/dd0wney/cluso-sketch/pkg/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
		listenAddr = flag.String("listen", "", "Override the configured listen address")
		maxOps     = flag.Int("max-operations", 0, "Override the configured operation log cap")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *maxOps > 0 {
		cfg.MaxOperations = *maxOps
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("Starting sketch server",
		logging.String("listen", cfg.ListenAddr),
		logging.Int("maxOperations", cfg.MaxOperations),
		logging.Int("checkpointInterval", cfg.CheckpointInterval))

	reg := metrics.NewRegistry()
	log := oplog.NewLog(cfg.MaxOperations)
	h := hub.New(log, hub.Config{CoordinateBound: cfg.CoordinateBound}, logger, reg)
	srv := server.New(*cfg, h, logger, reg)

	gs := server.NewGracefulServer(cfg.ListenAddr, srv.Router(), logger)
	gs.SetConfigReloadFunc(func() error {
		reloaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		logger.SetLevel(logging.ParseLevel(reloaded.LogLevel))
		logger.Info("Log level reloaded", logging.String("level", reloaded.LogLevel))
		return nil
	})

	if err := gs.Start(); err != nil {
		logger.Error("Server failed", logging.Error(err))
		os.Exit(1)
	}
}
