package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Do_HeadersAndAuth(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{
		BaseURL:   srv.URL + "/",
		Auth:      OrgAPIKey{APIKey: APIKey{Key: "secret"}, OrgID: "org-1"},
		UserAgent: "test-agent/1.0",
	})
	resp, err := client.Do(context.Background(), &Request{
		Method:  http.MethodPost,
		Path:    "/events",
		Body:    []byte(`{"a":1}`),
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got.URL.Path != "/events" {
		t.Errorf("path = %q", got.URL.Path)
	}
	checks := map[string]string{
		"x-api-key":    "secret",
		"x-org-id":     "org-1",
		"User-Agent":   "test-agent/1.0",
		"Content-Type": "application/json",
	}
	for k, want := range checks {
		if v := got.Header.Get(k); v != want {
			t.Errorf("header %s = %q, want %q", k, v, want)
		}
	}
	if body != `{"a":1}` {
		t.Errorf("body = %q", body)
	}
}

func TestClient_Do_OmitsEmptyOrgID(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, Auth: OrgAPIKey{APIKey: APIKey{Key: "secret"}}})
	if _, err := client.Do(context.Background(), &Request{Method: http.MethodGet}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if _, ok := got["X-Org-Id"]; ok {
		t.Errorf("x-org-id sent with empty org id: %v", got)
	}
}

func TestClient_Do_ErrorStatusIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down"))
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL})
	resp, err := client.Do(context.Background(), &Request{Method: http.MethodPost, Path: "x"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if !httpErr.IsServerError() || httpErr.IsRateLimited() {
		t.Errorf("classification wrong for %d", httpErr.StatusCode)
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected response alongside error, got %+v", resp)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClient_Do_CanceledContext(t *testing.T) {
	client := NewClient(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Do(ctx, &Request{Method: http.MethodGet}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
