// Package places is the HTTP client for the external place-search provider.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
)

const (
	// Provider-side hard bounds. Requests outside them are clamped before
	// the call ever leaves the process.
	MaxRadiusMeters = 100000
	MaxLimit        = 50
)

var (
	ErrSearchTimeout = errors.New("PLACE_SEARCH_TIMEOUT")
	ErrSearchFailed  = errors.New("PLACE_SEARCH_FAILED")
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Request describes one candidate search against the provider.
type Request struct {
	Query          string
	Center         models.Location
	RadiusMeters   float64
	CategoryFilter string
	Limit          int
	SortKey        string
}

// Searcher is what the orchestrator depends on.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]models.Place, error)
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithFields(map[string]interface{}{"client": "places"}),
	}
}

// Search fetches raw candidate places for a geographic query. Network and
// auth failures come back as typed errors the orchestrator treats as fatal.
func (c *Client) Search(ctx context.Context, req Request) ([]models.Place, error) {
	searchURL := c.buildSearchURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	httpReq.Header.Set("Authorization", c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrSearchTimeout
			}
		}

		resp, lastErr = c.client.Do(httpReq)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrSearchTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
			// Client errors other than rate limiting will not heal on retry.
			if respIsPermanent(lastErr) {
				break
			}
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, lastErr)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: no successful response after retries", ErrSearchFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Results []placeDocument `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrSearchFailed, err)
	}

	out := make([]models.Place, 0, len(apiResponse.Results))
	for _, doc := range apiResponse.Results {
		out = append(out, doc.toPlace())
	}

	c.logger.Info("place search completed", map[string]interface{}{
		"query":       req.Query,
		"resultCount": len(out),
	})

	return out, nil
}

func (c *Client) buildSearchURL(req Request) string {
	radius := req.RadiusMeters
	if radius < 0 {
		radius = 0
	}
	if radius > MaxRadiusMeters {
		radius = MaxRadiusMeters
	}
	limit := req.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	params.Add("query", req.Query)
	params.Add("ll", fmt.Sprintf("%f,%f", req.Center.Lat, req.Center.Lng))
	params.Add("radius", strconv.Itoa(int(radius)))
	params.Add("limit", strconv.Itoa(limit))
	if req.CategoryFilter != "" {
		params.Add("categories", req.CategoryFilter)
	}
	if req.SortKey != "" {
		params.Add("sort", req.SortKey)
	}

	return strings.TrimRight(c.config.BaseURL, "/") + "/v3/places/search?" + params.Encode()
}

func respIsPermanent(err error) bool {
	s := err.Error()
	return strings.Contains(s, "status 4") && !strings.Contains(s, "status 429")
}
