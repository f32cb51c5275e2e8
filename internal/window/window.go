// Package window defines the half-open time windows the collector fetches
// and commits, and the planner that cuts an overall range into them.
package window

import (
	"fmt"
	"time"

	"github.com/nucleus/di-collector/internal/core"
)

// Layout is the literal timestamp format used in API requests and object
// names: UTC, second precision, no fractional seconds.
const Layout = "2006-01-02T15:04:05Z"

const (
	// OnDemandChunk is the window size for explicitly bounded runs.
	OnDemandChunk = time.Hour
	// ScheduledChunk is the window size for cron-driven runs.
	ScheduledChunk = 15 * time.Minute
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// StartString returns Start in the literal timestamp format.
func (w Window) StartString() string { return Format(w.Start) }

// EndString returns End in the literal timestamp format.
func (w Window) EndString() string { return Format(w.End) }

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.StartString(), w.EndString())
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Format renders t in the literal timestamp format, converting to UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse reads a timestamp in the literal format. Anything else, including
// fractional seconds or numeric offsets, is a timestamp parse error.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return time.Time{}, core.TimestampParseError(value, err)
	}
	// time.Parse tolerates a fractional second the layout does not name.
	if t.Format(Layout) != value {
		return time.Time{}, core.TimestampParseError(value, fmt.Errorf("want layout %s", Layout))
	}
	return t.UTC(), nil
}
