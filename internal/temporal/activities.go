package temporal

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/orchestration"
	"github.com/nucleus/di-collector/internal/window"
)

// RunSummary is the serialisable outcome of a run.
type RunSummary struct {
	RunID           string   `json:"runId"`
	Mode            string   `json:"mode"`
	State           string   `json:"state"`
	Start           string   `json:"start,omitempty"`
	End             string   `json:"end,omitempty"`
	ColdStart       bool     `json:"coldStart,omitempty"`
	WindowsPlanned  int      `json:"windowsPlanned"`
	WindowsWritten  int      `json:"windowsWritten"`
	WindowsSkipped  int      `json:"windowsSkipped"`
	ObjectsArchived int      `json:"objectsArchived"`
	Events          int      `json:"events"`
	Objects         []string `json:"objects,omitempty"`
}

// Summarize converts a RunResult for transport.
func Summarize(r *orchestration.RunResult) *RunSummary {
	if r == nil {
		return nil
	}
	s := &RunSummary{
		RunID:           r.RunID,
		Mode:            r.Mode,
		State:           string(r.State),
		ColdStart:       r.ColdStart,
		WindowsPlanned:  r.WindowsPlanned,
		WindowsWritten:  r.WindowsWritten,
		WindowsSkipped:  r.WindowsSkipped,
		ObjectsArchived: r.ObjectsArchived,
		Events:          r.Events,
		Objects:         r.Objects,
	}
	if !r.Start.IsZero() {
		s.Start = window.Format(r.Start)
	}
	if !r.End.IsZero() {
		s.End = window.Format(r.End)
	}
	return s
}

// Activities holds the collector activities.
type Activities struct {
	orchestrator *orchestration.Orchestrator
}

// NewActivities creates activities over o.
func NewActivities(o *orchestration.Orchestrator) *Activities {
	return &Activities{orchestrator: o}
}

// RunScheduled performs one scheduled collection pass.
func (a *Activities) RunScheduled(ctx context.Context, input ScheduledInput) (*RunSummary, error) {
	logger := activity.GetLogger(ctx)
	now := input.Now
	if now.IsZero() {
		now = a.orchestrator.Now()
	}
	logger.Info("running scheduled collection", "now", now)

	res, err := a.orchestrator.WithLogger(logger).WithHeartbeat(activity.RecordHeartbeat).RunScheduled(ctx, now)
	if err != nil {
		return nil, applicationError(err)
	}
	return Summarize(res), nil
}

// RunOnDemand collects explicit bounds.
func (a *Activities) RunOnDemand(ctx context.Context, input OnDemandInput) (*RunSummary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("running on-demand collection", "start", input.Start, "end", input.End)

	res, err := a.orchestrator.WithLogger(logger).WithHeartbeat(activity.RecordHeartbeat).RunOnDemand(ctx, input.Start, input.End)
	if err != nil {
		return nil, applicationError(err)
	}
	return Summarize(res), nil
}

// applicationError exposes the collector error code as the Temporal error
// type.
func applicationError(err error) error {
	code := core.CodeOf(err)
	if code == "" {
		return err
	}
	return temporal.NewApplicationErrorWithOptions(err.Error(), code, temporal.ApplicationErrorOptions{
		NonRetryable: !core.IsRetryable(err),
		Cause:        err,
	})
}
