// Package server exposes the collector over HTTP: the trigger endpoint the
// scheduler (or an operator) calls, plus health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	tlog "go.temporal.io/sdk/log"

	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/metrics"
	"github.com/nucleus/di-collector/internal/orchestration"
)

const (
	scheduledReply = "ok"
	onDemandReply  = "DI successfully ran"
)

// Runner executes collection runs. orchestration.Orchestrator implements it.
type Runner interface {
	RunScheduled(ctx context.Context, now time.Time) (*orchestration.RunResult, error)
	RunOnDemand(ctx context.Context, start, end string) (*orchestration.RunResult, error)
	Now() time.Time
}

// Overrides replace on-demand request bounds when set (local testing).
type Overrides struct {
	Start string
	End   string
}

// Handler serves the trigger endpoints. Runs are serialised in-process.
type Handler struct {
	runner    Runner
	mode      config.Mode
	overrides Overrides
	logger    tlog.Logger
	ready     func(context.Context) error

	mu sync.Mutex
}

// NewHandler creates a trigger handler for mode.
func NewHandler(runner Runner, mode config.Mode, overrides Overrides, logger tlog.Logger) *Handler {
	return &Handler{runner: runner, mode: mode, overrides: overrides, logger: logger}
}

// SetReadiness installs the check behind /readyz, typically the object
// store ping.
func (h *Handler) SetReadiness(check func(context.Context) error) {
	h.ready = check
}

// Router returns the chi router with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())
	for _, path := range []string{"/", "/run"} {
		r.Get(path, h.trigger)
		r.Post(path, h.trigger)
	}
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeText(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeText(w, http.StatusOK, "ready")
}

// onDemandRequest is the JSON body of an on-demand trigger.
type onDemandRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// trigger echoes the message query parameter when present, which bypasses
// all processing. Otherwise it runs the collector in the configured mode.
func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query(); query.Has("message") {
		writeText(w, http.StatusOK, query.Get("message"))
		return
	}

	switch h.mode {
	case config.ModeOnDemand:
		req, err := h.boundsFromRequest(r)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if _, err := h.runOnDemand(r.Context(), req); err != nil {
			h.writeError(w, err)
			return
		}
		writeText(w, http.StatusOK, onDemandReply)
	default:
		if _, err := h.runScheduled(r.Context()); err != nil {
			h.writeError(w, err)
			return
		}
		writeText(w, http.StatusOK, scheduledReply)
	}
}

func (h *Handler) boundsFromRequest(r *http.Request) (onDemandRequest, error) {
	var req onDemandRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return req, core.ConfigurationError("read request body: %v", err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return req, core.ConfigurationError("decode request body: %v", err)
		}
	}
	if h.overrides.Start != "" {
		req.Start = h.overrides.Start
	}
	if h.overrides.End != "" {
		req.End = h.overrides.End
	}
	return req, nil
}

func (h *Handler) runScheduled(ctx context.Context) (*orchestration.RunResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runner.RunScheduled(ctx, h.runner.Now())
}

func (h *Handler) runOnDemand(ctx context.Context, req onDemandRequest) (*orchestration.RunResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runner.RunOnDemand(ctx, req.Start, req.End)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	h.logger.Error("trigger failed", "status", status, "code", core.CodeOf(err), "error", err)
	writeText(w, status, err.Error())
}

// StatusFor maps a run error to an HTTP status.
func StatusFor(err error) int {
	switch core.CodeOf(err) {
	case core.CodeConfiguration, core.CodeTimestampParse:
		return http.StatusBadRequest
	case core.CodeUpstreamHTTP, core.CodeUpstreamProtocol:
		return http.StatusBadGateway
	case core.CodeMalformedWatermark:
		return http.StatusConflict
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}
