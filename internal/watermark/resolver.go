package watermark

import (
	"context"
	"fmt"
	"time"
)

// PrevFirer returns the last fire time strictly before t.
// schedule.Schedule implements it.
type PrevFirer interface {
	Prev(t time.Time) (time.Time, error)
}

// Resolution is the outcome of a watermark lookup.
type Resolution struct {
	Start     time.Time
	ColdStart bool
	// LastObject is the name the start was derived from; empty on cold start.
	LastObject string
}

// Resolver derives the next start boundary.
type Resolver struct {
	store    Store
	naming   Naming
	schedule PrevFirer
}

// NewResolver creates a resolver over store. schedule supplies the cold
// start boundary when nothing has been committed yet.
func NewResolver(store Store, naming Naming, schedule PrevFirer) *Resolver {
	return &Resolver{store: store, naming: naming, schedule: schedule}
}

// Resolve returns the end of the last committed window, or the schedule's
// previous fire time before now when storage holds no window objects. A
// last name that does not parse is a malformed watermark error; Resolve
// never guesses a fallback.
func (r *Resolver) Resolve(ctx context.Context, now time.Time) (Resolution, error) {
	last, ok, err := r.store.Latest(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("list committed windows: %w", err)
	}
	if !ok {
		start, err := r.schedule.Prev(now)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Start: start, ColdStart: true}, nil
	}

	w, err := r.naming.Parse(last)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Start: w.End, LastObject: last}, nil
}
