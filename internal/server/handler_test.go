package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/logging"
	"github.com/nucleus/di-collector/internal/orchestration"
)

type fakeRunner struct {
	mu        sync.Mutex
	scheduled int
	onDemand  [][2]string
	err       error
}

func (f *fakeRunner) RunScheduled(context.Context, time.Time) (*orchestration.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled++
	return &orchestration.RunResult{State: orchestration.StateDone}, f.err
}

func (f *fakeRunner) RunOnDemand(_ context.Context, start, end string) (*orchestration.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDemand = append(f.onDemand, [2]string{start, end})
	return &orchestration.RunResult{State: orchestration.StateDone}, f.err
}

func (f *fakeRunner) Now() time.Time { return time.Now().UTC() }

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestTrigger_MessagePassthrough(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, config.ModeScheduled, Overrides{}, logging.Discard())

	rec := serve(h, http.MethodGet, "/?message=hello", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
	if runner.scheduled != 0 {
		t.Error("message request triggered a run")
	}
}

func TestTrigger_Scheduled(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, config.ModeScheduled, Overrides{}, logging.Discard())

	for _, path := range []string{"/", "/run"} {
		rec := serve(h, http.MethodPost, path, "")
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("%s response = %d %q", path, rec.Code, rec.Body.String())
		}
	}
	if runner.scheduled != 2 {
		t.Errorf("scheduled runs = %d, want 2", runner.scheduled)
	}
}

func TestTrigger_OnDemand(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, config.ModeOnDemand, Overrides{}, logging.Discard())

	rec := serve(h, http.MethodPost, "/", `{"start":"2023-09-10T00:00:00Z","end":"2023-09-10T02:00:00Z"}`)
	if rec.Code != http.StatusOK || rec.Body.String() != "DI successfully ran" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if len(runner.onDemand) != 1 || runner.onDemand[0] != [2]string{"2023-09-10T00:00:00Z", "2023-09-10T02:00:00Z"} {
		t.Errorf("runs = %v", runner.onDemand)
	}
}

func TestTrigger_OnDemandOverrides(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, config.ModeOnDemand, Overrides{Start: "2023-01-01T00:00:00Z"}, logging.Discard())

	rec := serve(h, http.MethodPost, "/run", `{"start":"2023-09-10T00:00:00Z","end":"2023-09-10T02:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if runner.onDemand[0] != [2]string{"2023-01-01T00:00:00Z", "2023-09-10T02:00:00Z"} {
		t.Errorf("runs = %v", runner.onDemand)
	}
}

func TestTrigger_BadBody(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, config.ModeOnDemand, Overrides{}, logging.Discard())

	rec := serve(h, http.MethodPost, "/", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(runner.onDemand) != 0 {
		t.Error("run started with bad body")
	}
}

func TestTrigger_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ConfigurationError("bad"), http.StatusBadRequest},
		{core.TimestampParseError("x", errors.New("bad")), http.StatusBadRequest},
		{core.Wrap(core.CodeUpstreamHTTP, false, errors.New("401")), http.StatusBadGateway},
		{core.Wrap(core.CodeUpstreamProtocol, false, errors.New("cursor")), http.StatusBadGateway},
		{core.MalformedWatermarkError("x.json"), http.StatusConflict},
		{core.Wrap(core.CodeStorage, true, errors.New("disk")), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewHandler(&fakeRunner{err: tt.err}, config.ModeScheduled, Overrides{}, logging.Discard())
			rec := serve(h, http.MethodGet, "/", "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewHandler(&fakeRunner{}, config.ModeScheduled, Overrides{}, logging.Discard())

	if rec := serve(h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	_ = serve(h, http.MethodGet, "/", "")
	rec := serve(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "di_http_requests_total") {
		t.Errorf("metrics = %d, body missing di_http_requests_total", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	h := NewHandler(&fakeRunner{}, config.ModeScheduled, Overrides{}, logging.Discard())
	if rec := serve(h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz without check = %d", rec.Code)
	}
	h.SetReadiness(func(context.Context) error { return errors.New("store unreachable") })
	if rec := serve(h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check = %d", rec.Code)
	}
}
