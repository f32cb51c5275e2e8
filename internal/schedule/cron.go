// Package schedule wraps a standard five-field cron expression with the
// backward-looking queries the collector needs: the previous fire time and
// the end of the last fully elapsed period.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/nucleus/di-collector/internal/core"
)

// maxLookback bounds the backward search for a previous fire time. Any
// schedule that has not fired within it is treated as invalid.
const maxLookback = 5 * 366 * 24 * time.Hour

// Schedule is a parsed cron expression evaluated in UTC.
type Schedule struct {
	expr string
	spec cron.Schedule
}

// Parse parses a standard cron expression (minute hour dom month dow) or a
// descriptor such as "@hourly". "@every" descriptors are rejected.
func Parse(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, core.ConfigurationError("cron schedule is required")
	}
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, core.Wrap(core.CodeConfiguration, false, fmt.Errorf("parse cron schedule %q: %w", expr, err))
	}
	// @every intervals float with the process start and have no fixed
	// period boundaries to snap windows to.
	if _, ok := spec.(cron.ConstantDelaySchedule); ok {
		return nil, core.ConfigurationError("cron schedule %q: @every intervals are not supported, use a five-field expression", expr)
	}
	return &Schedule{expr: expr, spec: spec}, nil
}

// MustParse is Parse for expressions known at compile time.
func MustParse(expr string) *Schedule {
	s, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the cron expression.
func (s *Schedule) String() string { return s.expr }

// Next returns the first fire time strictly after t.
func (s *Schedule) Next(t time.Time) (time.Time, error) {
	next := s.spec.Next(t.UTC())
	if next.IsZero() {
		return time.Time{}, core.ConfigurationError("cron schedule %q never fires after %s", s.expr, t.UTC().Format(time.RFC3339))
	}
	return next.UTC(), nil
}

// Prev returns the last fire time strictly before t.
//
// The cron library only searches forward, so Prev widens a lookback window
// until it contains a fire time and then walks forward to the last one
// before t.
func (s *Schedule) Prev(t time.Time) (time.Time, error) {
	t = t.UTC()
	for lookback := time.Minute; lookback <= maxLookback; lookback *= 2 {
		from := t.Add(-lookback)
		fire := s.spec.Next(from)
		if fire.IsZero() || !fire.Before(t) {
			continue
		}
		for {
			next := s.spec.Next(fire)
			if next.IsZero() || !next.Before(t) {
				return fire.UTC(), nil
			}
			fire = next
		}
	}
	return time.Time{}, core.ConfigurationError("cron schedule %q has no fire time before %s", s.expr, t.Format(time.RFC3339))
}

// CompletedBoundary returns the end of the last fully elapsed cron period
// at now. With T_prev = Prev(now) and T_next = Next(T_prev) it is T_next
// when T_next <= now and T_prev otherwise, so a fire time exactly at now
// counts as completed.
func (s *Schedule) CompletedBoundary(now time.Time) (time.Time, error) {
	now = now.UTC()
	prev, err := s.Prev(now)
	if err != nil {
		return time.Time{}, err
	}
	next, err := s.Next(prev)
	if err != nil {
		return time.Time{}, err
	}
	if !next.After(now) {
		return next, nil
	}
	return prev, nil
}
