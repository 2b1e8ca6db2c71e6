package feed

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/search"
)

func page(n, offset int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{"id": fmt.Sprintf("job-%d", offset+i)})
	}
	return out
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(context.Background(), zap.NewNop(), 0)
	c.BaseURL = srv.URL
	return c
}

func TestSearchStopsOnShortPage(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != SearchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("s") == "" {
			t.Errorf("missing search state")
		}
		p, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size != 2 {
			t.Errorf("unexpected page size %d", size)
		}

		n := 2
		if p == 1 {
			n = 1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": page(n, p*2)})
	})

	filters := &search.Filters{Search: search.Query{Query: "go"}, Pagination: search.Pagination{MaxPages: 10, PageSize: 2}}
	records, err := c.Search(filters)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if calls != 2 {
		t.Fatalf("expected 2 requests, got %d", calls)
	}
}

func TestSearchRespectsMaxPages(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(page(2, 0))
	})

	records, err := c.Search(&search.Filters{Pagination: search.Pagination{MaxPages: 3, PageSize: 2}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 6 || calls != 3 {
		t.Fatalf("expected 6 records in 3 calls, got %d in %d", len(records), calls)
	}
}

func TestSearchKeepsPartialResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(page(2, 0))
	})

	records, err := c.Search(&search.Filters{Pagination: search.Pagination{MaxPages: 5, PageSize: 2}})
	if err != nil {
		t.Fatalf("expected partial results, got error %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestSearchFailsOnFirstPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Search(&search.Filters{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSearchDecodesGzip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_ = json.NewEncoder(gz).Encode(map[string]any{"jobs": page(1, 0)})
		_ = gz.Close()
	})

	records, err := c.Search(&search.Filters{Pagination: search.Pagination{PageSize: 5}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 1 || records[0]["id"] != "job-0" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestExtractRecords(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"list", `[{"a":1},{"b":2}]`, 2},
		{"results", `{"results":[{"a":1}]}`, 1},
		{"data", `{"data":[{"a":1},{"a":2},{"a":3}]}`, 3},
		{"hits", `{"hits":{"hits":[{"_source":{"a":1}},{"_id":"x"}]}}`, 1},
		{"unknown", `{"other":[{"a":1}]}`, 0},
		{"non objects", `[1,"x",{"a":1}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if err := json.Unmarshal([]byte(tt.body), &body); err != nil {
				t.Fatal(err)
			}
			if got := extractRecords(body); len(got) != tt.want {
				t.Fatalf("expected %d records, got %d", tt.want, len(got))
			}
		})
	}
}

func TestEncodeSearchStateRoundTrip(t *testing.T) {
	filters := &search.Filters{
		Search:         search.Query{Query: "go developer"},
		Locations:      []jobs.Location{{Name: "Toronto, ON", Coordinates: &jobs.Coordinates{Lat: 43.65, Lon: -79.38}}},
		WorkplaceTypes: []string{"Remote"},
		Salary:         search.Salary{MinAnnual: 90000, Currency: "CAD"},
		DateFilter:     search.DateFilter{Days: 7},
	}

	encoded, err := EncodeSearchState(BuildSearchState(filters))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	quoted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	raw, err := url.PathUnescape(string(quoted))
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}

	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		t.Fatalf("json: %v", err)
	}

	if state["searchQuery"] != "go developer" {
		t.Fatalf("unexpected query: %v", state["searchQuery"])
	}
	if state["dateFetchedPastNDays"] != float64(7) {
		t.Fatalf("unexpected days: %v", state["dateFetchedPastNDays"])
	}
	if state["minCompensationLowEnd"] != float64(90000) {
		t.Fatalf("unexpected salary: %v", state["minCompensationLowEnd"])
	}
	locs, _ := state["locations"].([]any)
	if len(locs) != 1 {
		t.Fatalf("expected one location, got %v", state["locations"])
	}
}

func TestQuote(t *testing.T) {
	if got := quote(`{"a b":"/x~"}`); got != "%7B%22a%20b%22%3A%22/x~%22%7D" {
		t.Fatalf("unexpected quoting: %s", got)
	}
}

func TestCacheValidity(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "filters.yaml")
	if err := os.WriteFile(config, []byte("search:\n  query: go\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	valid, err := CacheValid(dir, config, DefaultMaxAge, now)
	if err != nil || valid {
		t.Fatalf("expected missing cache to be invalid, got %v %v", valid, err)
	}

	meta, err := WriteRaw(dir, []Record{{"id": "1"}, {"id": "2"}}, config, now)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if meta.JobCount != 2 || meta.RunID == "" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	if valid, _ := CacheValid(dir, config, DefaultMaxAge, now.Add(time.Hour)); !valid {
		t.Fatalf("expected fresh cache to be valid")
	}
	if valid, _ := CacheValid(dir, config, DefaultMaxAge, now.Add(25*time.Hour)); valid {
		t.Fatalf("expected stale cache to be invalid")
	}

	if err := os.WriteFile(config, []byte("search:\n  query: rust\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if valid, _ := CacheValid(dir, config, DefaultMaxAge, now.Add(time.Hour)); valid {
		t.Fatalf("expected changed config to invalidate cache")
	}

	records, err := ReadRaw(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 || records[1]["id"] != "2" {
		t.Fatalf("unexpected records: %v", records)
	}
}
