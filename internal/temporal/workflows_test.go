package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/insights"
	"github.com/nucleus/di-collector/internal/logging"
	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/orchestration"
	"github.com/nucleus/di-collector/internal/schedule"
	"github.com/nucleus/di-collector/internal/watermark"
	"github.com/nucleus/di-collector/internal/window"
)

// oneRecordFetcher returns a single record per service for every window.
type oneRecordFetcher struct {
	err error
}

func (f oneRecordFetcher) Fetch(_ context.Context, w window.Window, sel insights.Selector) (*insights.WindowResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &insights.WindowResult{Window: w}
	for _, svc := range sel.Services() {
		res.Services = append(res.Services, insights.ServiceResult{
			Service:  svc,
			Requests: 1,
			Records:  []json.RawMessage{json.RawMessage(`{"ok":true}`)},
		})
	}
	return res, nil
}

func newActivities(t *testing.T, fetcher orchestration.Fetcher, names ...string) (*Activities, *objectstore.Bucket) {
	t.Helper()
	bucket := objectstore.NewBucket(objectstore.NewMemoryStore(), "events")
	for _, name := range names {
		if err := bucket.Put(context.Background(), name, []byte("[{}]"), objectstore.ContentTypeJSON); err != nil {
			t.Fatal(err)
		}
	}
	sel, err := insights.ParseSelector("directory")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Services: sel, ArchiveKeep: 100, Schedule: schedule.MustParse("*/15 * * * *")}
	return NewActivities(orchestration.Wire(bucket, watermark.DefaultPrefix, fetcher, cfg, logging.Discard())), bucket
}

func registerAll(env *testsuite.TestWorkflowEnvironment, acts *Activities) {
	env.RegisterWorkflowWithOptions(ScheduledWorkflowFunc, workflow.RegisterOptions{Name: ScheduledWorkflow})
	env.RegisterWorkflowWithOptions(OnDemandWorkflowFunc, workflow.RegisterOptions{Name: OnDemandWorkflow})
	env.RegisterActivity(acts)
}

func TestRunActivityOptions_NoRetries(t *testing.T) {
	opts := runActivityOptions(RunOptions{})
	if opts.RetryPolicy == nil || opts.RetryPolicy.MaximumAttempts != 1 {
		t.Errorf("RetryPolicy = %+v, want MaximumAttempts 1", opts.RetryPolicy)
	}
	if opts.StartToCloseTimeout != DefaultRunTimeout {
		t.Errorf("StartToCloseTimeout = %v, want %v", opts.StartToCloseTimeout, DefaultRunTimeout)
	}
	if opts.HeartbeatTimeout != RunHeartbeatTimeout {
		t.Errorf("HeartbeatTimeout = %v", opts.HeartbeatTimeout)
	}
}

func TestRunActivityOptions_ConfigurableTimeout(t *testing.T) {
	opts := runActivityOptions(RunOptions{Timeout: 72 * time.Hour})
	if opts.StartToCloseTimeout != 72*time.Hour {
		t.Errorf("StartToCloseTimeout = %v, want 72h", opts.StartToCloseTimeout)
	}
}

func TestScheduledWorkflow_UsesWorkflowClock(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts, _ := newActivities(t, oneRecordFetcher{}, "jc_directoryinsights_2023-09-10T15:00:00Z_2023-09-10T15:15:00Z.json")
	registerAll(env, acts)

	start, _ := window.Parse("2023-09-10T16:00:20Z")
	env.SetStartTime(start)
	env.ExecuteWorkflow(ScheduledWorkflow, RunOptions{})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var summary RunSummary
	if err := env.GetWorkflowResult(&summary); err != nil {
		t.Fatalf("GetWorkflowResult: %v", err)
	}
	if summary.Mode != orchestration.ModeScheduled || summary.WindowsWritten != 3 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Start != "2023-09-10T15:15:00Z" || summary.End != "2023-09-10T16:00:00Z" {
		t.Errorf("bounds = %s..%s", summary.Start, summary.End)
	}
}

func TestScheduledWorkflow_SurfacesErrorCode(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts, _ := newActivities(t, oneRecordFetcher{},
		"jc_directoryinsights_2023-09-10T15:00:00Z_2023-09-10T15:15:00Z.json",
		"jc_directoryinsights_garbage.json",
	)
	registerAll(env, acts)

	env.ExecuteWorkflow(ScheduledWorkflow, RunOptions{})

	err := env.GetWorkflowError()
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want application error", err)
	}
	if appErr.Type() != core.CodeMalformedWatermark || !appErr.NonRetryable() {
		t.Errorf("type = %s nonRetryable = %v", appErr.Type(), appErr.NonRetryable())
	}
}

func TestOnDemandWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts, bucket := newActivities(t, oneRecordFetcher{})
	registerAll(env, acts)

	env.ExecuteWorkflow(OnDemandWorkflow, OnDemandInput{Start: "2023-09-10T00:00:00Z", End: "2023-09-10T03:00:00Z"})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var summary RunSummary
	if err := env.GetWorkflowResult(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.WindowsWritten != 3 || len(summary.Objects) != 3 {
		t.Errorf("summary = %+v", summary)
	}
	names, _ := bucket.List(context.Background(), watermark.DefaultPrefix)
	if len(names) != 3 {
		t.Errorf("objects = %v", names)
	}
}

func TestOnDemandWorkflow_Heartbeats(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts, _ := newActivities(t, oneRecordFetcher{})
	registerAll(env, acts)

	var beats int
	env.SetOnActivityHeartbeatListener(func(*activity.Info, converter.EncodedValues) {
		beats++
	})
	env.ExecuteWorkflow(OnDemandWorkflow, OnDemandInput{
		Start:   "2023-09-10T00:00:00Z",
		End:     "2023-09-10T05:00:00Z",
		Options: RunOptions{Timeout: 2 * time.Hour},
	})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	// The SDK batches heartbeats, so only the first is guaranteed to arrive.
	if beats == 0 {
		t.Error("activity never heartbeated")
	}
}

func TestRunOnDemandActivity_RetryableUpstreamError(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	acts, _ := newActivities(t, oneRecordFetcher{err: core.Wrap(core.CodeUpstreamHTTP, true, errors.New("HTTP 503"))})
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.RunOnDemand, OnDemandInput{Start: "2023-09-10T00:00:00Z", End: "2023-09-10T01:00:00Z"})
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want application error", err)
	}
	if appErr.Type() != core.CodeUpstreamHTTP || appErr.NonRetryable() {
		t.Errorf("type = %s nonRetryable = %v", appErr.Type(), appErr.NonRetryable())
	}
}

func TestRunScheduledActivity_DefaultsToNow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	acts, _ := newActivities(t, oneRecordFetcher{})
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.RunScheduled, ScheduledInput{})
	if err != nil {
		t.Fatalf("ExecuteActivity: %v", err)
	}
	var summary RunSummary
	if err := val.Get(&summary); err != nil {
		t.Fatal(err)
	}
	// A cold start plans at most the one period ending exactly at now.
	if summary.RunID == "" || summary.WindowsPlanned > 1 || summary.Mode != orchestration.ModeScheduled {
		t.Errorf("cold start summary = %+v", summary)
	}
}
