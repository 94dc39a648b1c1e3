package fdc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, RateLimitWait: time.Millisecond}
}

// newTestClient points a client at the test server with pacing effectively
// disabled so tests never sit in limiter waits.
func newTestClient(srvURL string) *Client {
	return NewClient(srvURL, "test-key", 50, 100000, testPolicy())
}

func TestFetchPage_DecodesResponse(t *testing.T) {
	var gotReq SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/foods/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("missing api key, got query %s", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		json.NewEncoder(w).Encode(SearchResponse{
			TotalHits:   123,
			TotalPages:  3,
			CurrentPage: 2,
			Foods: []Food{
				{FDCID: 1, Description: "Cheddar"},
				{FDCID: 2, Description: "Apple"},
			},
		})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).FetchPage(context.Background(), "Foundation", 2)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if gotReq.PageNumber != 2 || gotReq.PageSize != 50 {
		t.Errorf("unexpected page request: %+v", gotReq)
	}
	if len(gotReq.DataType) != 1 || gotReq.DataType[0] != "Foundation" {
		t.Errorf("expected single-partition request, got %v", gotReq.DataType)
	}
	if resp.TotalHits != 123 || resp.TotalPages != 3 || len(resp.Foods) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestFetchPage_DefaultsCurrentPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResponse{TotalHits: 1, TotalPages: 1})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).FetchPage(context.Background(), "Branded", 7)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if resp.CurrentPage != 7 {
		t.Errorf("expected current page defaulted to 7, got %d", resp.CurrentPage)
	}
}

func TestFetchPage_MalformedBodyIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPage(context.Background(), "Foundation", 1)
	if !errors.Is(err, ErrPermanent) {
		t.Errorf("expected ErrPermanent for malformed body, got %v", err)
	}
}

func TestFetchPage_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SearchResponse{TotalHits: 5, TotalPages: 1, CurrentPage: 1})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).FetchPage(context.Background(), "SR Legacy", 1)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if resp.TotalHits != 5 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestProbeTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.PageSize != 1 {
			t.Errorf("probe should request page size 1, got %d", req.PageSize)
		}
		json.NewEncoder(w).Encode(SearchResponse{TotalHits: 452000, TotalPages: 452000, CurrentPage: 1})
	}))
	defer srv.Close()

	total, err := newTestClient(srv.URL).ProbeTotal(context.Background(), "Branded")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if total != 452000 {
		t.Errorf("expected 452000, got %d", total)
	}
}

func TestNewClient_ClampsPageSize(t *testing.T) {
	c := NewClient("http://x", "k", 9999, 60, testPolicy())
	if c.PageSize() != MaxPageSize {
		t.Errorf("expected page size clamped to %d, got %d", MaxPageSize, c.PageSize())
	}
	c = NewClient("http://x", "k", 0, 60, testPolicy())
	if c.PageSize() != MaxPageSize {
		t.Errorf("expected zero page size defaulted to %d, got %d", MaxPageSize, c.PageSize())
	}
}
