// Package archive keeps the top level of the bucket small by relocating
// older window objects into date-partitioned paths.
package archive

import (
	"context"
	"fmt"
	"sort"

	tlog "go.temporal.io/sdk/log"

	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/watermark"
)

// DefaultKeep is the number of most recent objects left at the top level.
const DefaultKeep = 100

// QuarantinePrefix is prepended to names that do not parse.
const QuarantinePrefix = "bad_"

// Result lists what one Archive call relocated.
type Result struct {
	// Moved maps each source name to its date-partitioned destination.
	Moved map[string]string
	// Quarantined maps each source name to its bad_ destination.
	Quarantined map[string]string
}

// Total returns the number of relocated objects.
func (r Result) Total() int { return len(r.Moved) + len(r.Quarantined) }

// Archiver relocates (never rewrites) window objects.
type Archiver struct {
	bucket *objectstore.Bucket
	naming watermark.Naming
	keep   int
	logger tlog.Logger
}

// NewArchiver creates an archiver that keeps the newest keep objects in
// place. keep <= 0 uses DefaultKeep.
func NewArchiver(bucket *objectstore.Bucket, naming watermark.Naming, keep int, logger tlog.Logger) *Archiver {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Archiver{bucket: bucket, naming: naming, keep: keep, logger: logger}
}

// Keep returns the retention count.
func (a *Archiver) Keep() int { return a.keep }

// Archive runs once names holds more than keep objects. Every name that
// does not parse moves to bad_<name>, wherever it sorts. Of the valid names,
// all but the newest keep move to <YYYY-MM-DD of start>/<name>. Each move is
// copy then delete; the first failure stops the pass and leaves the failing
// object in place.
func (a *Archiver) Archive(ctx context.Context, names []string) (Result, error) {
	result := Result{Moved: map[string]string{}, Quarantined: map[string]string{}}
	if len(names) <= a.keep {
		return result, nil
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	type validName struct {
		name  string
		start string
	}
	valid := make([]validName, 0, len(sorted))
	for _, name := range sorted {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		w, err := a.naming.Parse(name)
		if err == nil {
			valid = append(valid, validName{name: name, start: w.StartString()})
			continue
		}

		dst := QuarantinePrefix + name
		a.logger.Error("quarantining object with unexpected name", "object", name, "destination", dst)
		if err := a.bucket.Move(ctx, name, dst); err != nil {
			return result, fmt.Errorf("quarantine %s: %w", name, err)
		}
		result.Quarantined[name] = dst
	}

	if len(valid) <= a.keep {
		return result, nil
	}
	for _, v := range valid[:len(valid)-a.keep] {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		dst := datePartition(v.start) + "/" + v.name
		a.logger.Info("archiving object", "object", v.name, "destination", dst)
		if err := a.bucket.Move(ctx, v.name, dst); err != nil {
			return result, fmt.Errorf("archive %s: %w", v.name, err)
		}
		result.Moved[v.name] = dst
	}
	return result, nil
}

// datePartition returns the YYYY-MM-DD part of a literal timestamp.
func datePartition(ts string) string {
	return ts[:len("2006-01-02")]
}
