// Package main is the entry point for a schema registry node.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/streamforge/schema-registry/internal/api"
	"github.com/streamforge/schema-registry/internal/compatibility"
	compatavro "github.com/streamforge/schema-registry/internal/compatibility/avro"
	"github.com/streamforge/schema-registry/internal/config"
	"github.com/streamforge/schema-registry/internal/coordinator"
	"github.com/streamforge/schema-registry/internal/registry"
	schemaavro "github.com/streamforge/schema-registry/internal/schema/avro"
	"github.com/streamforge/schema-registry/internal/statemachine"
	"github.com/streamforge/schema-registry/internal/walog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("schema-registry-node %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("SCHEMA_REGISTRY_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("starting schema registry node",
		slog.String("version", version),
		slog.String("role", cfg.Node.Role),
		slog.String("address", cfg.Address()),
		slog.String("log_path", cfg.Node.LogPath),
	)

	log, err := walog.Open(cfg.Node.LogPath)
	if err != nil {
		logger.Error("failed to open command log", slog.String("error", err.Error()))
		os.Exit(1)
	}

	onFatal := func(err error) {
		logger.Error("state machine replay failed fatally, exiting", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sm := statemachine.New(log, logger, onFatal)
	if err := sm.Bootstrap(); err != nil {
		logger.Error("failed to bootstrap state machine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	checker := compatibility.NewChecker()
	checker.Register(compatavro.NewChecker())

	role := coordinator.RolePrimary
	if strings.EqualFold(cfg.Node.Role, "replica") {
		role = coordinator.RoleReplica
	}
	selfEndpoint := fmt.Sprintf("http://%s", cfg.Address())
	primaryEndpoint := selfEndpoint
	if role == coordinator.RoleReplica {
		primaryEndpoint = cfg.Node.PrimaryEndpoint
	}
	coord := coordinator.NewStaticCoordinator(role, primaryEndpoint)
	lease := coordinator.NewSubjectLease()

	var forwarder registry.Forwarder
	if role == coordinator.RoleReplica {
		forwarder = registry.NewHTTPForwarder()
	}

	reg := registry.New(sm, schemaavro.NewParser(), checker, coord, lease, forwarder, logger)

	if role == coordinator.RolePrimary {
		if defaultMode, ok := compatibility.ParseMode(strings.ToUpper(cfg.Compatibility.DefaultLevel)); ok {
			if err := reg.SetConfig(context.Background(), "", defaultMode); err != nil {
				logger.Warn("failed to apply configured default compatibility level", slog.String("error", err.Error()))
			}
		}
	}

	server := api.NewServer(cfg, reg, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("shutting down", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
		if err := log.Close(); err != nil {
			logger.Error("log close error", slog.String("error", err.Error()))
		}
	}

	logger.Info("shutdown complete")
}
