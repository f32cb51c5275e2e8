// Package temporal provides the Temporal workflow and activities that run
// the collector on its cron cadence.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// =============================================================================
// WORKFLOW NAMES
// =============================================================================

const (
	ScheduledWorkflow = "directoryInsightsScheduledWorkflow"
	OnDemandWorkflow  = "directoryInsightsOnDemandWorkflow"

	RunScheduledActivity = "RunScheduled"
	RunOnDemandActivity  = "RunOnDemand"
)

// =============================================================================
// ACTIVITY OPTIONS
// =============================================================================

const (
	// DefaultRunTimeout bounds one run when RunOptions leaves it unset.
	DefaultRunTimeout = 24 * time.Hour

	// RunHeartbeatTimeout is the longest one window may take.
	RunHeartbeatTimeout = 30 * time.Minute
)

// RunOptions tune the collection activity of a workflow.
type RunOptions struct {
	// Timeout bounds the whole run; zero means DefaultRunTimeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// runActivityOptions never retries: a failed run surfaces, and the next cron
// firing resumes from the last committed window.
func runActivityOptions(opts RunOptions) workflow.ActivityOptions {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    RunHeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// =============================================================================
// WORKFLOW INPUTS
// =============================================================================

// ScheduledInput is the input for the RunScheduled activity.
type ScheduledInput struct {
	// Now is the firing time; the activity truncates it to the minute.
	Now time.Time `json:"now"`
}

// OnDemandInput is the input for OnDemandWorkflow and RunOnDemand.
type OnDemandInput struct {
	Start   string     `json:"start"`
	End     string     `json:"end"`
	Options RunOptions `json:"options,omitempty"`
}

// =============================================================================
// WORKFLOWS
// =============================================================================

// ScheduledWorkflowFunc runs one scheduled pass. It is started with a
// CronSchedule so each firing is a fresh execution with the same opts.
func ScheduledWorkflowFunc(ctx workflow.Context, opts RunOptions) (*RunSummary, error) {
	logger := workflow.GetLogger(ctx)
	actCtx := workflow.WithActivityOptions(ctx, runActivityOptions(opts))

	input := ScheduledInput{Now: workflow.Now(ctx).UTC()}
	logger.Info("starting scheduled run", "now", input.Now)

	var summary RunSummary
	if err := workflow.ExecuteActivity(actCtx, RunScheduledActivity, input).Get(ctx, &summary); err != nil {
		logger.Error("scheduled run failed", "error", err)
		return nil, err
	}
	return &summary, nil
}

// OnDemandWorkflowFunc backfills explicit bounds.
func OnDemandWorkflowFunc(ctx workflow.Context, input OnDemandInput) (*RunSummary, error) {
	actCtx := workflow.WithActivityOptions(ctx, runActivityOptions(input.Options))

	var summary RunSummary
	if err := workflow.ExecuteActivity(actCtx, RunOnDemandActivity, input).Get(ctx, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
