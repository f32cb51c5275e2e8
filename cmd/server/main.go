// Package main runs the collector's HTTP trigger server.
package main

import (
	"context"
	"log"

	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/logging"
	"github.com/nucleus/di-collector/internal/orchestration"
	"github.com/nucleus/di-collector/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting directory insights trigger server", "config", cfg.String(), "port", cfg.Port)

	orch, bucket, err := orchestration.FromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}
	if err := orchestration.EnsureBucket(context.Background(), bucket); err != nil {
		log.Fatalf("Failed to prepare bucket: %v", err)
	}

	handler := server.NewHandler(orch, cfg.Mode, server.Overrides{
		Start: cfg.StartOverride,
		End:   cfg.EndOverride,
	}, logger)
	handler.SetReadiness(bucket.Ping)

	if err := server.New(cfg.Port, handler.Router(), logger).Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
