package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

type pageBody struct {
	Limit       int             `json:"limit"`
	SearchAfter json.RawMessage `json:"search_after,omitempty"`
}

func newTestPaginator(limit int) *HeaderCursorPaginator {
	return NewHeaderCursorPaginator("/events", limit, func(cursor json.RawMessage) any {
		return pageBody{Limit: limit, SearchAfter: cursor}
	})
}

func response(headers map[string]string, body string) *Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &Response{StatusCode: http.StatusOK, Headers: h, Body: []byte(body)}
}

func TestHeaderCursorPaginator_FirstPageHasNoCursor(t *testing.T) {
	p := newTestPaginator(3)
	req, err := p.FirstPage()
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if req.Method != http.MethodPost || req.Path != "/events" {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	if string(req.Body) != `{"limit":3}` {
		t.Errorf("body = %s", req.Body)
	}
}

func TestHeaderCursorPaginator_FollowsCursorWhileFull(t *testing.T) {
	p := newTestPaginator(2)
	resp := response(map[string]string{
		"X-Result-Count": "2",
		"X-Limit":        "2",
		"X-Search_After": `[1694358000000, "abc"]`,
	}, `[{},{}]`)

	next, err := p.NextPage(context.Background(), resp)
	if err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if next == nil {
		t.Fatal("expected another page")
	}
	var body pageBody
	if err := json.Unmarshal(next.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(body.SearchAfter) != `[1694358000000,"abc"]` {
		t.Errorf("search_after = %s", body.SearchAfter)
	}
	if p.Pages() != 1 {
		t.Errorf("Pages = %d", p.Pages())
	}
	if string(p.Cursor()) != `[1694358000000, "abc"]` {
		t.Errorf("Cursor = %s", p.Cursor())
	}
}

func TestHeaderCursorPaginator_StopsOnShortPage(t *testing.T) {
	p := newTestPaginator(2)
	next, err := p.NextPage(context.Background(), response(map[string]string{
		"X-Result-Count": "1",
		"X-Limit":        "2",
	}, `[{}]`))
	if err != nil || next != nil {
		t.Fatalf("NextPage = %v, %v; want nil, nil", next, err)
	}
}

func TestHeaderCursorPaginator_FallsBackToBodyCount(t *testing.T) {
	p := newTestPaginator(2)

	next, err := p.NextPage(context.Background(), response(nil, `[]`))
	if err != nil || next != nil {
		t.Fatalf("empty page: NextPage = %v, %v; want nil, nil", next, err)
	}

	next, err = p.NextPage(context.Background(), response(map[string]string{
		"X-Search_After": `["c"]`,
	}, `[{},{}]`))
	if err != nil || next == nil {
		t.Fatalf("full page without headers: NextPage = %v, %v", next, err)
	}
}

func TestHeaderCursorPaginator_MissingCursor(t *testing.T) {
	p := newTestPaginator(2)
	_, err := p.NextPage(context.Background(), response(map[string]string{
		"X-Result-Count": "2",
		"X-Limit":        "2",
	}, `[{},{}]`))
	if !errors.Is(err, ErrMissingCursor) {
		t.Fatalf("error = %v, want ErrMissingCursor", err)
	}
}

func TestHeaderCursorPaginator_InvalidHeaders(t *testing.T) {
	tests := map[string]map[string]string{
		"bad count":  {"X-Result-Count": "many", "X-Limit": "2"},
		"bad limit":  {"X-Result-Count": "2", "X-Limit": "two"},
		"bad cursor": {"X-Result-Count": "2", "X-Limit": "2", "X-Search_After": "[unterminated"},
	}
	for name, headers := range tests {
		t.Run(name, func(t *testing.T) {
			p := newTestPaginator(2)
			if _, err := p.NextPage(context.Background(), response(headers, `[{},{}]`)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHeaderCursorPaginator_NonPositiveLimitHeader(t *testing.T) {
	p := newTestPaginator(5)
	next, err := p.NextPage(context.Background(), response(map[string]string{
		"X-Result-Count": "0",
		"X-Limit":        "0",
	}, `[]`))
	if err != nil || next != nil {
		t.Fatalf("NextPage = %v, %v; want nil, nil", next, err)
	}
}
