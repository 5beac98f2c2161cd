package mangadex

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
)

const (
	DefaultBaseURL = "https://api.mangadex.org"

	// MangaDex allows 5 requests per second
	rateLimit = 5
	rateBurst = 10

	maxRetries   = 5
	initialDelay = 1 * time.Second
	maxDelay     = 32 * time.Second

	// upper bound of ids[] accepted by /author
	maxAuthorIDs = 100
)

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("mangadex: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client handles API requests with rate limiting and retry logic
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a MangaDex API client. An empty baseURL selects the
// public API.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		logger:      logger,
		sleep:       sleepContext,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetManga fetches one page of /manga.
func (c *Client) GetManga(ctx context.Context, params url.Values) (*MangaListResponse, error) {
	var response MangaListResponse
	if err := c.doRequest(ctx, "/manga", params, &response); err != nil {
		return nil, fmt.Errorf("fetch manga: %w", err)
	}
	return &response, nil
}

// GetAuthors resolves author ids to names, chunking by the API's id limit.
// Authors the API does not return are absent from the map.
func (c *Client) GetAuthors(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += maxAuthorIDs {
		end := min(start+maxAuthorIDs, len(ids))

		params := url.Values{}
		for _, id := range ids[start:end] {
			params.Add("ids[]", id)
		}
		params.Set("limit", strconv.Itoa(maxAuthorIDs))

		var response AuthorListResponse
		if err := c.doRequest(ctx, "/author", params, &response); err != nil {
			return nil, fmt.Errorf("fetch authors: %w", err)
		}
		for _, a := range response.Data {
			if a.ID != "" && a.Attributes.Name != "" {
				names[a.ID] = a.Attributes.Name
			}
		}
	}
	return names, nil
}

// doRequest performs a GET with rate limiting and retry logic
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay = min(delay*2, maxDelay)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		retry, wait, err := c.attempt(ctx, fullURL, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		if wait > 0 {
			delay = wait
		}
		c.logger.Warn("mangadex_request_retry",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"delay", delay,
			"error", err,
		)
	}

	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

// attempt runs a single request. It reports whether the failure is
// retryable and any delay the server asked for.
func (c *Client) attempt(ctx context.Context, fullURL string, result any) (bool, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "MangaWatch/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		return true, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if !shouldRetry(resp.StatusCode) {
			return false, 0, httpErr
		}
		return true, retryAfter(resp.Header.Get("Retry-After")), httpErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return false, 0, fmt.Errorf("decode response: %w", err)
	}
	return false, 0, nil
}

// shouldRetry determines if an HTTP status code warrants a retry
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MangaPageParams builds the query for one page of the import walk.
func MangaPageParams(limit, offset int, createdAtSince string) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Add("includes[]", "cover_art")
	params.Add("contentRating[]", "safe")
	params.Add("contentRating[]", "suggestive")
	params.Add("contentRating[]", "erotica")
	params.Set("order[createdAt]", "asc")

	if createdAtSince != "" {
		params.Set("createdAtSince", createdAtSince)
	}
	return params
}
