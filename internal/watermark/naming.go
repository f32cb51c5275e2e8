package watermark

import (
	"regexp"
	"strings"

	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/window"
)

// DefaultPrefix is the object name prefix for Directory Insights windows.
const DefaultPrefix = "jc_directoryinsights"

const timestampPattern = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`

// Naming encodes windows into object names of the form
// <prefix>_<start>_<end>.json and parses them back.
type Naming struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewNaming returns the naming scheme for prefix.
func NewNaming(prefix string) Naming {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Naming{
		prefix: prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) +
			`_(` + timestampPattern + `)_(` + timestampPattern + `)\.json$`),
	}
}

// Prefix returns the listing prefix shared by every window object.
func (n Naming) Prefix() string { return n.prefix }

// Name returns the object name for w.
func (n Naming) Name(w window.Window) string {
	return n.prefix + "_" + w.StartString() + "_" + w.EndString() + ".json"
}

// Parse extracts the window encoded in name. Names that do not match the
// pattern, or whose bounds are out of order, are malformed watermarks.
func (n Naming) Parse(name string) (window.Window, error) {
	m := n.pattern.FindStringSubmatch(name)
	if m == nil {
		return window.Window{}, core.MalformedWatermarkError(name)
	}
	start, err := window.Parse(m[1])
	if err != nil {
		return window.Window{}, core.Wrap(core.CodeMalformedWatermark, false, err)
	}
	end, err := window.Parse(m[2])
	if err != nil {
		return window.Window{}, core.Wrap(core.CodeMalformedWatermark, false, err)
	}
	if !start.Before(end) {
		return window.Window{}, core.MalformedWatermarkError(name)
	}
	return window.Window{Start: start, End: end}, nil
}

// IsTopLevel reports whether name is a window object at the top level
// (not date-partitioned, not quarantined).
func (n Naming) IsTopLevel(name string) bool {
	return strings.HasPrefix(name, n.prefix) && !strings.Contains(name, "/")
}
