package nasa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/blackmichael/space-feeds/internal/domain"
)

const (
	defaultAPIURL    = "https://api.nasa.gov"
	defaultImagesURL = "https://images-api.nasa.gov"
	defaultAPIKey    = "DEMO_KEY"
	userAgent        = "space-feeds/1.0"
)

// ResponseCache stores raw upstream bodies keyed by request URL.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// Options configures a Client. Zero values fall back to the public
// endpoints, the demo key and an unlimited request rate.
type Options struct {
	APIURL     string
	ImagesURL  string
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	Cache      ResponseCache
	HTTPClient *http.Client
}

// Client talks to the image library, APOD and NeoWs APIs. It implements
// domain.ImageLibrary, domain.PictureOfDaySource and
// domain.NearEarthObjectFeed.
type Client struct {
	apiURL     string
	imagesURL  string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      ResponseCache
	logger     *slog.Logger
}

var (
	_ domain.ImageLibrary        = (*Client)(nil)
	_ domain.PictureOfDaySource  = (*Client)(nil)
	_ domain.NearEarthObjectFeed = (*Client)(nil)
)

// NewClient creates a new API client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.ImagesURL == "" {
		opts.ImagesURL = defaultImagesURL
	}
	if opts.APIKey == "" {
		opts.APIKey = defaultAPIKey
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		imagesURL:  strings.TrimRight(opts.ImagesURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		cache:      opts.Cache,
		logger:     logger,
	}
}

// Search runs an image library search and returns the normalized items.
func (c *Client) Search(ctx context.Context, params domain.SearchParams) ([]domain.Post, error) {
	q := url.Values{}
	q.Set("q", params.Query)
	if len(params.MediaTypes) > 0 {
		types := make([]string, len(params.MediaTypes))
		for i, mt := range params.MediaTypes {
			types[i] = string(mt)
		}
		q.Set("media_type", strings.Join(types, ","))
	}
	setPositive(q, "page", params.Page)
	setPositive(q, "page_size", params.PageSize)
	setPositive(q, "year_start", params.YearStart)
	setPositive(q, "year_end", params.YearEnd)

	var resp searchResponse
	if err := c.get(ctx, request{base: c.imagesURL, path: "/search", query: q}, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", params.Query, err)
	}
	return MapLibraryItems(resp.Collection.Items), nil
}

// Lookup fetches a single library item by nasa_id.
func (c *Client) Lookup(ctx context.Context, nasaID string) (*domain.Post, error) {
	q := url.Values{}
	q.Set("nasa_id", nasaID)

	var resp searchResponse
	if err := c.get(ctx, request{base: c.imagesURL, path: "/search", query: q}, &resp); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", nasaID, err)
	}

	posts := MapLibraryItems(resp.Collection.Items)
	if len(posts) == 0 {
		return nil, domain.ErrPostNotFound
	}
	return &posts[0], nil
}

// PictureOfDay fetches the astronomy picture for date, or the current one
// when date is empty.
func (c *Client) PictureOfDay(ctx context.Context, date string) (*domain.Post, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}

	// The date-less answer changes daily and is never cached.
	var resp apodResponse
	req := request{base: c.apiURL, path: "/planetary/apod", query: q, withKey: true, noCache: date == ""}
	if err := c.get(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("picture of the day: %w", err)
	}
	return MapPictureOfDay(resp), nil
}

// NearEarthObjects fetches the objects with a close approach on date.
func (c *Client) NearEarthObjects(ctx context.Context, date string) ([]domain.NearEarthObject, error) {
	q := url.Values{}
	q.Set("start_date", date)
	q.Set("end_date", date)

	var resp neoFeedResponse
	if err := c.get(ctx, request{base: c.apiURL, path: "/neo/rest/v1/feed", query: q, withKey: true}, &resp); err != nil {
		return nil, fmt.Errorf("near earth objects: %w", err)
	}
	return MapNearEarthObjects(resp.NearEarthObjects[date]), nil
}

// request describes one upstream GET.
type request struct {
	base    string
	path    string
	query   url.Values
	withKey bool
	noCache bool
}

func (c *Client) get(ctx context.Context, r request, out any) error {
	body, err := c.fetch(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// fetch returns the response body for a GET, serving from the cache when
// possible. The api key never becomes part of the cache key.
func (c *Client) fetch(ctx context.Context, r request) ([]byte, error) {
	base, path, q := r.base, r.path, r.query
	cacheKey := base + path + "?" + q.Encode()
	useCache := c.cache != nil && !r.noCache
	if useCache {
		if body, ok := c.cache.Get(cacheKey); ok {
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", domain.ErrUpstreamUnavailable, err)
	}

	if r.withKey {
		q.Set("api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstreamUnavailable, err)
	}

	c.logger.Debug("upstream request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (status %d)", domain.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: API error (status %d): %s", domain.ErrUpstreamUnavailable, resp.StatusCode, truncate(body, 200))
	}

	if useCache {
		if err := c.cache.Set(cacheKey, body); err != nil {
			c.logger.Warn("failed to cache response", "path", path, "error", err)
		}
	}
	return body, nil
}

func setPositive(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
