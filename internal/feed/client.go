// Package feed fetches the raw job listing feed and caches it on disk.
package feed

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/job-matcher/internal/search"
)

const (
	baseURL    = "https://hiring.cafe"
	SearchPath = "/api/search-jobs"
	userAgent  = "spigell/job-matcher"

	contentType     = "application/json"
	contentEncoding = "gzip"

	DefaultPageSize = 40
	DefaultMaxPages = 25
)

// Record is one raw, source-shaped job record.
type Record = map[string]any

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	logger     *zap.Logger
	limiter    *rate.Limiter
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

// New creates a feed client issuing at most requestsPerSecond page requests.
func New(ctx context.Context, logger *zap.Logger, requestsPerSecond float64) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Client{
		ctx:     ctx,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
		BaseURL:   baseURL,
	}
}

// Search fetches every page for the given filters. A failure after the first
// page ends pagination and keeps what was already fetched.
func (c *Client) Search(filters *search.Filters) ([]Record, error) {
	pageSize := filters.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxPages := filters.Pagination.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	encoded, err := EncodeSearchState(BuildSearchState(filters))
	if err != nil {
		return nil, fmt.Errorf("encoding search state: %w", err)
	}

	q := url.Values{}
	q.Set("s", encoded)
	q.Set("size", strconv.Itoa(pageSize))

	var records []Record
	for page := 0; page < maxPages; page++ {
		if err := c.limiter.Wait(c.ctx); err != nil {
			return records, err
		}

		q.Set("page", strconv.Itoa(page))
		batch, err := c.getPage(c.BaseURL+SearchPath, q)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			c.logger.Warn("stopping pagination", zap.Int("page", page), zap.Error(err))
			break
		}

		c.logger.Debug("got feed page", zap.Int("page", page), zap.Int("count", len(batch)))
		records = append(records, batch...)

		if len(batch) < pageSize {
			break
		}
	}

	return records, nil
}

func (c *Client) getPage(endpoint string, q url.Values) ([]Record, error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	dec := json.NewDecoder(reader)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding feed page: %w", err)
	}
	return extractRecords(body), nil
}

// extractRecords accepts a bare list, {"results": [...]}, a few other
// envelope keys and search-engine style hits.
func extractRecords(body any) []Record {
	var list []any
	switch t := body.(type) {
	case []any:
		list = t
	case map[string]any:
		for _, key := range []string{"results", "jobs", "data", "items", "content"} {
			if items, ok := t[key].([]any); ok {
				list = items
				break
			}
		}
		if list == nil {
			list = searchHits(t)
		}
	}

	records := make([]Record, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}

func searchHits(body map[string]any) []any {
	hits, ok := body["hits"].(map[string]any)
	if !ok {
		return nil
	}
	inner, _ := hits["hits"].([]any)

	list := make([]any, 0, len(inner))
	for _, hit := range inner {
		h, ok := hit.(map[string]any)
		if !ok {
			continue
		}
		if src, ok := h["_source"].(map[string]any); ok {
			list = append(list, src)
		}
	}
	return list
}
