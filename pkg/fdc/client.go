package fdc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// MaxPageSize is the largest page the search endpoint accepts.
const MaxPageSize = 200

// Client talks to the FoodData Central search endpoint. All requests are
// paced by a client-side rate limiter and wrapped by the retry policy, so a
// steady-state sync rarely trips HTTP 429 in the first place.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	httpc    *http.Client
	limiter  *rate.Limiter
	policy   RetryPolicy
}

// NewClient creates a search API client. requestsPerMinute sets the pacing
// budget; pageSize is clamped to MaxPageSize.
func NewClient(baseURL, apiKey string, pageSize, requestsPerMinute int, policy RetryPolicy) *Client {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 16
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		httpc:    &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		policy:   policy,
	}
}

// PageSize returns the configured records-per-page.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage fetches one page of the given partition. Pages are 1-based.
func (c *Client) FetchPage(ctx context.Context, partition string, page int) (*SearchResponse, error) {
	return c.search(ctx, partition, page, c.pageSize)
}

// ProbeTotal fetches the smallest possible page of a partition to learn its
// total record count. Used only for progress estimation, never correctness.
func (c *Client) ProbeTotal(ctx context.Context, partition string) (int, error) {
	resp, err := c.search(ctx, partition, 1, 1)
	if err != nil {
		return 0, err
	}
	return resp.TotalHits, nil
}

func (c *Client) search(ctx context.Context, partition string, page, pageSize int) (*SearchResponse, error) {
	payload, err := json.Marshal(SearchRequest{
		Query:      "",
		DataType:   []string{partition},
		PageSize:   pageSize,
		PageNumber: page,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/foods/search?api_key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	name := fmt.Sprintf("search %s page %d", partition, page)

	body, err := c.policy.Do(ctx, name, func(ctx context.Context) (int, []byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, nil, err
		}
		return resp.StatusCode, raw, nil
	})
	if err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		slog.Error("search_response_malformed", "partition", partition, "page", page, "error", err)
		return nil, fmt.Errorf("%w: decode search response: %v", ErrPermanent, err)
	}
	if out.CurrentPage == 0 {
		out.CurrentPage = page
	}

	slog.Debug("search_page_fetched",
		"partition", partition,
		"page", out.CurrentPage,
		"total_pages", out.TotalPages,
		"foods", len(out.Foods))

	return &out, nil
}
