package window

import (
	"fmt"
	"time"

	"github.com/nucleus/di-collector/internal/core"
)

// EndSnapper moves a nominal end boundary back to the last completed period.
// schedule.Schedule implements it.
type EndSnapper interface {
	CompletedBoundary(now time.Time) (time.Time, error)
}

// Plan is [start, end) cut into consecutive windows of at most chunk, the
// last one truncated to end. Windows are computed on demand.
type Plan struct {
	start time.Time
	end   time.Time
	chunk time.Duration
}

// NewPlan plans [start, end) in chunk-sized windows. start >= end yields an
// empty plan.
func NewPlan(start, end time.Time, chunk time.Duration) (Plan, error) {
	if chunk <= 0 {
		return Plan{}, core.ConfigurationError("window chunk must be positive, got %s", chunk)
	}
	return Plan{start: start.UTC(), end: end.UTC(), chunk: chunk}, nil
}

// Len returns the number of windows.
func (p Plan) Len() int {
	if p.chunk <= 0 || !p.start.Before(p.end) {
		return 0
	}
	span := p.end.Sub(p.start)
	n := int(span / p.chunk)
	if span%p.chunk != 0 {
		n++
	}
	return n
}

// At returns window i, 0 <= i < Len().
func (p Plan) At(i int) Window {
	start := p.start.Add(time.Duration(i) * p.chunk)
	end := start.Add(p.chunk)
	if end.After(p.end) {
		end = p.end
	}
	return Window{Start: start, End: end}
}

// End returns the exclusive end of the plan.
func (p Plan) End() time.Time { return p.end }

// PlanOnDemand plans explicit bounds in one-hour windows.
func PlanOnDemand(start, end time.Time) (Plan, error) {
	return NewPlan(start, end, OnDemandChunk)
}

// PlanScheduled snaps now to the last completed cron period and plans
// [start, snapped) in fifteen-minute windows. A snapped end equal to (or
// before) start is a valid empty plan.
func PlanScheduled(start, now time.Time, snapper EndSnapper) (Plan, error) {
	end, err := snapper.CompletedBoundary(now)
	if err != nil {
		return Plan{}, fmt.Errorf("snap end boundary: %w", err)
	}
	return NewPlan(start, end, ScheduledChunk)
}
