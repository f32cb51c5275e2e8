// Package orchestration drives one collection run: archive old objects,
// resolve the watermark, plan windows, then fetch and write each window in
// order.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	tlog "go.temporal.io/sdk/log"

	"github.com/nucleus/di-collector/internal/archive"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/insights"
	"github.com/nucleus/di-collector/internal/metrics"
	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/schedule"
	"github.com/nucleus/di-collector/internal/sink"
	"github.com/nucleus/di-collector/internal/watermark"
	"github.com/nucleus/di-collector/internal/window"
)

// State is a step of the run state machine.
type State string

const (
	StateIdle               State = "idle"
	StateArchiving          State = "archiving"
	StateResolvingWatermark State = "resolving_watermark"
	StatePlanning           State = "planning"
	StateFetching           State = "fetching"
	StateWriting            State = "writing"
	StateDone               State = "done"
)

// Run modes as reported in metrics and results.
const (
	ModeScheduled = "scheduled"
	ModeOnDemand  = "on_demand"
)

// Fetcher pulls all events for one window. insights.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, w window.Window, sel insights.Selector) (*insights.WindowResult, error)
}

// RunResult summarises a run. On failure it reports how far the run got.
type RunResult struct {
	RunID           string
	Mode            string
	State           State
	Start           time.Time
	End             time.Time
	ColdStart       bool
	WindowsPlanned  int
	WindowsWritten  int
	WindowsSkipped  int
	ObjectsArchived int
	Events          int
	Objects         []string
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Watermarks watermark.Store
	Resolver   *watermark.Resolver
	Fetcher    Fetcher
	Writer     *sink.Writer
	Archiver   *archive.Archiver
	Schedule   *schedule.Schedule
	Services   insights.Selector
	Logger     tlog.Logger
	// Heartbeat, when set, is called after each committed or skipped window
	// with the window and its position.
	Heartbeat func(ctx context.Context, details ...interface{})
}

// Orchestrator runs collection passes. It holds no lock: two runs against
// the same bucket prefix at once can write overlapping windows, so callers
// must serialise runs.
type Orchestrator struct {
	deps Deps
	now  func() time.Time
}

// New creates an orchestrator. Schedule may be nil when only on-demand runs
// are used.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps, now: time.Now}
}

// Now returns the orchestrator's wall clock in UTC.
func (o *Orchestrator) Now() time.Time { return o.now().UTC() }

// run tracks one pass through the state machine.
type run struct {
	o      *Orchestrator
	result *RunResult
	logger tlog.Logger
}

func (o *Orchestrator) newRun(mode string) *run {
	id := uuid.NewString()
	return &run{
		o:      o,
		result: &RunResult{RunID: id, Mode: mode, State: StateIdle},
		logger: tlog.With(o.deps.Logger, "run_id", id, "mode", mode),
	}
}

func (r *run) enter(state State, keyvals ...interface{}) {
	r.logger.Info("state transition", append([]interface{}{"from", r.result.State, "to", state}, keyvals...)...)
	r.result.State = state
}

func (r *run) finish(started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = core.CodeOf(err)
		if outcome == "" {
			outcome = "error"
		}
		r.logger.Error("run failed", "state", r.result.State, "error", err)
	} else {
		r.enter(StateDone,
			"windows_planned", r.result.WindowsPlanned,
			"windows_written", r.result.WindowsWritten,
			"windows_skipped", r.result.WindowsSkipped,
			"events", r.result.Events)
	}
	metrics.ObserveRun(r.result.Mode, outcome, time.Since(started))
}

// RunScheduled performs a scheduled pass at now (truncated to the minute):
// archive, resolve the start from storage, snap the end to the schedule and
// collect every 15-minute window in between.
func (o *Orchestrator) RunScheduled(ctx context.Context, now time.Time) (res *RunResult, err error) {
	if o.deps.Schedule == nil {
		return nil, core.ConfigurationError("scheduled run requires a cron schedule")
	}
	started := time.Now()
	r := o.newRun(ModeScheduled)
	defer func() { r.finish(started, err) }()

	now = now.UTC().Truncate(time.Minute)

	r.enter(StateArchiving)
	names, err := o.deps.Watermarks.Names(ctx)
	if err != nil {
		return r.result, storageError("list objects", err)
	}
	archived, err := o.deps.Archiver.Archive(ctx, names)
	r.result.ObjectsArchived = archived.Total()
	metrics.ObjectsArchived.WithLabelValues("moved").Add(float64(len(archived.Moved)))
	metrics.ObjectsArchived.WithLabelValues("quarantined").Add(float64(len(archived.Quarantined)))
	if err != nil {
		return r.result, storageError("archive", err)
	}

	r.enter(StateResolvingWatermark)
	resolution, err := o.deps.Resolver.Resolve(ctx, now)
	if err != nil {
		return r.result, storageError("resolve watermark", err)
	}
	r.result.Start = resolution.Start
	r.result.ColdStart = resolution.ColdStart

	r.enter(StatePlanning, "start", window.Format(resolution.Start), "cold_start", resolution.ColdStart, "last_object", resolution.LastObject)
	plan, err := window.PlanScheduled(resolution.Start, now, o.deps.Schedule)
	if err != nil {
		return r.result, err
	}
	r.result.End = plan.End()
	if plan.Len() == 0 {
		r.logger.Info("no completed period since last window", "start", window.Format(resolution.Start), "end", window.Format(plan.End()))
	}

	return r.result, r.collect(ctx, plan)
}

// RunOnDemand collects [start, end) in one-hour windows. Both bounds use the
// literal YYYY-MM-DDTHH:MM:SSZ format. No archiving happens.
func (o *Orchestrator) RunOnDemand(ctx context.Context, start, end string) (res *RunResult, err error) {
	started := time.Now()
	r := o.newRun(ModeOnDemand)
	defer func() { r.finish(started, err) }()

	r.enter(StatePlanning, "start", start, "end", end)
	from, err := window.Parse(start)
	if err != nil {
		return r.result, err
	}
	to, err := window.Parse(end)
	if err != nil {
		return r.result, err
	}
	r.result.Start, r.result.End = from, to

	plan, err := window.PlanOnDemand(from, to)
	if err != nil {
		return r.result, err
	}
	return r.result, r.collect(ctx, plan)
}

// collect fetches and writes windows strictly in order. The first failure
// aborts; windows already written stay committed.
func (r *run) collect(ctx context.Context, plan window.Plan) error {
	total := plan.Len()
	r.result.WindowsPlanned = total
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := plan.At(i)
		r.enter(StateFetching, "window", w.String(), "index", i+1, "of", total)
		fetched, err := r.o.deps.Fetcher.Fetch(ctx, w, r.o.deps.Services)
		if err != nil {
			return err
		}
		for _, s := range fetched.Services {
			metrics.UpstreamRequests.WithLabelValues(string(s.Service)).Add(float64(s.Requests))
			metrics.EventsFetched.WithLabelValues(string(s.Service)).Add(float64(len(s.Records)))
		}
		r.result.Events += fetched.RecordCount()

		payload, err := fetched.Payload()
		if err != nil {
			return core.Wrap(core.CodeUpstreamProtocol, false, fmt.Errorf("window %s: %w", w, err))
		}

		r.enter(StateWriting, "window", w.String(), "records", fetched.RecordCount(), "requests", fetched.Requests())
		written, err := r.o.deps.Writer.Write(ctx, w, payload)
		if err != nil {
			return storageError("write "+written.Name, err)
		}
		if written.Skipped {
			r.result.WindowsSkipped++
			metrics.WindowsSkipped.Inc()
			r.logger.Info("no events in window", "window", w.String())
		} else {
			r.result.WindowsWritten++
			r.result.Objects = append(r.result.Objects, written.Name)
			metrics.WindowsWritten.Inc()
			r.logger.Info("window committed", "object", written.Name, "bytes", written.Bytes)
		}
		if r.o.deps.Heartbeat != nil {
			r.o.deps.Heartbeat(ctx, w.String(), i+1, total)
		}
	}
	return nil
}

// storageError tags object-store failures as E_STORAGE. Errors that already
// carry a collector code, and context errors, pass through unchanged.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if core.CodeOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var storeErr *objectstore.Error
	retryable := errors.As(err, &storeErr) && storeErr.Retryable
	return core.Wrap(core.CodeStorage, retryable, fmt.Errorf("%s: %w", op, err))
}

// WithHeartbeat returns a copy of o that reports per-window progress to
// heartbeat. Temporal activities pass activity.RecordHeartbeat.
func (o *Orchestrator) WithHeartbeat(heartbeat func(ctx context.Context, details ...interface{})) *Orchestrator {
	deps := o.deps
	deps.Heartbeat = heartbeat
	return &Orchestrator{deps: deps, now: o.now}
}

// WithLogger returns a copy of o that logs to logger. Temporal activities
// use it to log through the activity logger.
func (o *Orchestrator) WithLogger(logger tlog.Logger) *Orchestrator {
	deps := o.deps
	deps.Logger = logger
	return &Orchestrator{deps: deps, now: o.now}
}
