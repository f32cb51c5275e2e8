package insights

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nucleus/di-collector/internal/window"
)

// ServiceResult holds everything one service returned for a window.
type ServiceResult struct {
	Service  Service
	Requests int
	Records  []json.RawMessage
}

// WindowResult accumulates the per-service results of one window.
type WindowResult struct {
	Window   window.Window
	Services []ServiceResult
}

// RecordCount returns the number of records across all services.
func (r *WindowResult) RecordCount() int {
	n := 0
	for _, s := range r.Services {
		n += len(s.Records)
	}
	return n
}

// Requests returns the number of API calls made for the window.
func (r *WindowResult) Requests() int {
	n := 0
	for _, s := range r.Services {
		n += s.Requests
	}
	return n
}

// Payload frames the window's records for storage: each record is wrapped
// in its own JSON array and the arrays are joined by newlines, services in
// selector order and pages in fetch order. Record bytes are written as
// received, minus surrounding whitespace. No records yields an empty payload.
func (r *WindowResult) Payload() ([]byte, error) {
	var buf bytes.Buffer
	first := true
	for _, s := range r.Services {
		for i, rec := range s.Records {
			if !first {
				buf.WriteByte('\n')
			}
			first = false
			rec = bytes.TrimSpace(rec)
			if !json.Valid(rec) {
				return nil, fmt.Errorf("service %s record %d: invalid JSON", s.Service, i)
			}
			buf.WriteByte('[')
			buf.Write(rec)
			buf.WriteByte(']')
		}
	}
	return buf.Bytes(), nil
}
