package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/nucleus/di-collector/internal/config"
	ditemporal "github.com/nucleus/di-collector/internal/temporal"
	"github.com/nucleus/di-collector/internal/window"
)

func newScheduledCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "Run one scheduled collection pass now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, orch, _, err := a.load(ctx, config.ModeScheduled)
			if err != nil {
				return err
			}
			res, err := orch.RunScheduled(ctx, orch.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ditemporal.Summarize(res))
		},
	}
	cmd.Flags().String("cron", "", "cron schedule (overrides cron_schedule)")
	_ = a.v.BindPFlag("cron_schedule", cmd.Flags().Lookup("cron"))
	return cmd
}

func newOnDemandCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ondemand",
		Short: "Collect events between explicit bounds in one-hour windows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, orch, _, err := a.load(ctx, config.ModeOnDemand)
			if err != nil {
				return err
			}
			res, err := orch.RunOnDemand(ctx, cfg.StartOverride, cfg.EndOverride)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ditemporal.Summarize(res))
		},
	}
	cmd.Flags().String("start", "", "inclusive start, YYYY-MM-DDTHH:MM:SSZ")
	cmd.Flags().String("end", "", "exclusive end, YYYY-MM-DDTHH:MM:SSZ")
	_ = a.v.BindPFlag("start_date", cmd.Flags().Lookup("start"))
	_ = a.v.BindPFlag("end_date", cmd.Flags().Lookup("end"))
	return cmd
}

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move all but the newest window objects into date folders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Archiving needs no cron schedule.
			_, orch, _, err := a.load(ctx, config.ModeOnDemand)
			if err != nil {
				return err
			}
			res, err := orch.ArchiveNow(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"moved":       res.Moved,
				"quarantined": res.Quarantined,
			})
		},
	}
	cmd.Flags().Int("keep", 0, "number of newest objects to leave in place")
	_ = a.v.BindPFlag("archive_keep", cmd.Flags().Lookup("keep"))
	return cmd
}

func newWatermarkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watermark",
		Short: "Print the start boundary of the next scheduled run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, orch, _, err := a.load(ctx, config.ModeScheduled)
			if err != nil {
				return err
			}
			res, err := orch.NextStart(ctx)
			if err != nil {
				return err
			}
			now := orch.Now()
			end, err := cfg.Schedule.CompletedBoundary(now)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"start":      window.Format(res.Start),
				"end":        window.Format(end),
				"coldStart":  res.ColdStart,
				"lastObject": res.LastObject,
			})
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var workflowID string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Start the Temporal cron workflow for scheduled runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a.v.Set("mode", string(config.ModeScheduled))
			cfg, err := config.FromViper(a.v)
			if err != nil {
				return err
			}
			c, err := client.Dial(client.Options{
				HostPort:  cfg.TemporalAddress,
				Namespace: cfg.TemporalNamespace,
			})
			if err != nil {
				return fmt.Errorf("connect to temporal: %w", err)
			}
			defer c.Close()

			run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
				ID:           workflowID,
				TaskQueue:    cfg.TemporalTaskQueue,
				CronSchedule: cfg.CronSchedule,
			}, ditemporal.ScheduledWorkflow, ditemporal.RunOptions{Timeout: cfg.TemporalRunTimeout})
			if err != nil {
				return fmt.Errorf("start workflow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s) on %q\n", run.GetID(), run.GetRunID(), cfg.CronSchedule)
			return nil
		},
	}
	cmd.Flags().StringVar(&workflowID, "workflow-id", "directory-insights-scheduled", "workflow id")
	return cmd
}
