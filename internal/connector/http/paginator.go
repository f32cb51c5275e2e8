package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// =============================================================================
// PAGINATION STRATEGIES
// =============================================================================

// Paginator handles API pagination.
type Paginator interface {
	// NextPage returns the request for the next page, or nil if done.
	NextPage(ctx context.Context, resp *Response) (*Request, error)
}

// ErrMissingCursor is returned when a page signals more results but carries
// no continuation cursor.
var ErrMissingCursor = errors.New("page is full but no continuation cursor was returned")

// =============================================================================
// HEADER CURSOR PAGINATION
// =============================================================================

// HeaderCursorPaginator pages through a POST endpoint that reports result
// count, page limit and a JSON continuation cursor in response headers.
// Another page is requested while count >= limit.
type HeaderCursorPaginator struct {
	Path         string
	Limit        int
	CountHeader  string // default: X-Result-Count
	LimitHeader  string // default: X-Limit
	CursorHeader string // default: X-Search_After

	// Body builds the JSON request body. cursor is nil for the first page.
	Body func(cursor json.RawMessage) any

	cursor json.RawMessage
	pages  int
}

// NewHeaderCursorPaginator creates a paginator for path with the given page
// size and body builder.
func NewHeaderCursorPaginator(path string, limit int, body func(cursor json.RawMessage) any) *HeaderCursorPaginator {
	return &HeaderCursorPaginator{
		Path:         path,
		Limit:        limit,
		CountHeader:  "X-Result-Count",
		LimitHeader:  "X-Limit",
		CursorHeader: "X-Search_After",
		Body:         body,
	}
}

// FirstPage returns the request for the current cursor position.
func (p *HeaderCursorPaginator) FirstPage() (*Request, error) {
	data, err := json.Marshal(p.Body(p.cursor))
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return &Request{
		Method: http.MethodPost,
		Path:   p.Path,
		Body:   data,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// NextPage inspects the pagination headers of resp and returns the follow-up
// request, or nil once a page came back smaller than the limit.
func (p *HeaderCursorPaginator) NextPage(ctx context.Context, resp *Response) (*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.pages++

	count, err := p.resultCount(resp)
	if err != nil {
		return nil, err
	}
	limit, err := headerInt(resp.Headers, p.LimitHeader, p.Limit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = p.Limit
	}
	if count < limit {
		return nil, nil
	}

	raw := strings.TrimSpace(resp.Headers.Get(p.CursorHeader))
	if raw == "" {
		return nil, ErrMissingCursor
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("header %s is not valid JSON: %q", p.CursorHeader, raw)
	}
	p.cursor = json.RawMessage(raw)
	return p.FirstPage()
}

// Cursor returns the continuation cursor that will be sent with the next
// request, or nil before the first continuation.
func (p *HeaderCursorPaginator) Cursor() json.RawMessage { return p.cursor }

// Pages returns the number of responses inspected so far.
func (p *HeaderCursorPaginator) Pages() int { return p.pages }

// resultCount prefers the count header and falls back to the number of
// elements in the JSON array body.
func (p *HeaderCursorPaginator) resultCount(resp *Response) (int, error) {
	if resp.Headers.Get(p.CountHeader) != "" {
		return headerInt(resp.Headers, p.CountHeader, 0)
	}
	var items []json.RawMessage
	if err := resp.JSON(&items); err != nil {
		return 0, fmt.Errorf("decode page: %w", err)
	}
	return len(items), nil
}

func headerInt(h http.Header, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("header %s: %w", key, err)
	}
	return n, nil
}
