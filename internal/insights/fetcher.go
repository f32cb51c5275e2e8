package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	tlog "go.temporal.io/sdk/log"

	uclhttp "github.com/nucleus/di-collector/internal/connector/http"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/window"
)

const (
	DefaultBaseURL   = "https://api.jumpcloud.com"
	EventsPath       = "/insights/directory/v1/events"
	DefaultPageLimit = 10000
	UserAgent        = "JumpCloud_GCPServerless.DirectoryInsights/0.0.1"
)

// Credentials is the static API credential. An empty OrgID omits the
// x-org-id header.
type Credentials struct {
	APIKey string
	OrgID  string
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	BaseURL     string
	Credentials Credentials
	PageLimit   int
	RateLimit   float64
	RateBurst   int
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Fetcher pulls events for one window from the event API.
type Fetcher struct {
	client    *uclhttp.Client
	pageLimit int
	logger    tlog.Logger
}

// NewFetcher builds a Fetcher over a rate-limited, non-retrying client.
func NewFetcher(cfg FetcherConfig, logger tlog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	client := uclhttp.NewClient(&uclhttp.ClientConfig{
		BaseURL: cfg.BaseURL,
		Auth: uclhttp.OrgAPIKey{
			APIKey: uclhttp.APIKey{Key: cfg.Credentials.APIKey, Header: "x-api-key"},
			OrgID:  cfg.Credentials.OrgID,
		},
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		UserAgent: UserAgent,
		Transport: cfg.Transport,
	})
	return &Fetcher{client: client, pageLimit: cfg.PageLimit, logger: logger}
}

// eventsRequest is the JSON body of an events query.
type eventsRequest struct {
	Service     []string        `json:"service"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Limit       int             `json:"limit"`
	SearchAfter json.RawMessage `json:"search_after,omitempty"`
}

// Fetch requests every service in sel for w, strictly in selector order.
// Any failure aborts the whole window: a partial result is never returned.
func (f *Fetcher) Fetch(ctx context.Context, w window.Window, sel Selector) (*WindowResult, error) {
	result := &WindowResult{Window: w}
	for _, svc := range sel.Services() {
		sr, err := f.fetchService(ctx, w, svc)
		if err != nil {
			return nil, err
		}
		result.Services = append(result.Services, sr)
	}
	return result, nil
}

func (f *Fetcher) fetchService(ctx context.Context, w window.Window, svc Service) (ServiceResult, error) {
	start, end := w.StartString(), w.EndString()
	paginator := uclhttp.NewHeaderCursorPaginator(EventsPath, f.pageLimit, func(cursor json.RawMessage) any {
		return eventsRequest{
			Service:     []string{string(svc)},
			StartTime:   start,
			EndTime:     end,
			Limit:       f.pageLimit,
			SearchAfter: cursor,
		}
	})

	result := ServiceResult{Service: svc}
	req, err := paginator.FirstPage()
	if err != nil {
		return ServiceResult{}, core.Wrap(core.CodeUpstreamProtocol, false, err)
	}
	for req != nil {
		resp, err := f.client.Do(ctx, req)
		result.Requests++
		if err != nil {
			return ServiceResult{}, upstreamError(svc, w, err)
		}

		var page []json.RawMessage
		if err := resp.JSON(&page); err != nil {
			return ServiceResult{}, core.Wrap(core.CodeUpstreamProtocol, false,
				fmt.Errorf("service %s window %s: decode page %d: %w", svc, w, result.Requests, err))
		}
		result.Records = append(result.Records, page...)
		f.logger.Debug("fetched page", "service", svc, "window", w.String(), "page", result.Requests, "records", len(page))

		req, err = paginator.NextPage(ctx, resp)
		if err != nil {
			return ServiceResult{}, core.Wrap(core.CodeUpstreamProtocol, false,
				fmt.Errorf("service %s window %s: %w", svc, w, err))
		}
	}
	return result, nil
}

func upstreamError(svc Service, w window.Window, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	retryable := true
	var httpErr *uclhttp.HTTPError
	if errors.As(err, &httpErr) {
		retryable = httpErr.IsServerError() || httpErr.IsRateLimited()
	}
	return core.Wrap(core.CodeUpstreamHTTP, retryable, fmt.Errorf("service %s window %s: %w", svc, w, err))
}
