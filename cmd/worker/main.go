// Package main runs the collector's Temporal worker.
package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/logging"
	"github.com/nucleus/di-collector/internal/orchestration"
	ditemporal "github.com/nucleus/di-collector/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	log.Printf("Starting DI worker: address=%s namespace=%s queue=%s",
		cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TemporalTaskQueue)

	orch, bucket, err := orchestration.FromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}
	if err := orchestration.EnsureBucket(context.Background(), bucket); err != nil {
		log.Fatalf("Failed to prepare bucket: %v", err)
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(ditemporal.ScheduledWorkflowFunc, workflow.RegisterOptions{Name: ditemporal.ScheduledWorkflow})
	w.RegisterWorkflowWithOptions(ditemporal.OnDemandWorkflowFunc, workflow.RegisterOptions{Name: ditemporal.OnDemandWorkflow})
	w.RegisterActivity(ditemporal.NewActivities(orch))

	log.Printf("Registered workflows %s, %s and activities %s, %s",
		ditemporal.ScheduledWorkflow, ditemporal.OnDemandWorkflow,
		ditemporal.RunScheduledActivity, ditemporal.RunOnDemandActivity)

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
