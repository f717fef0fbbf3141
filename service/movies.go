package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cartelera-cli/model"
	"github.com/spf13/afero"
)

const (
	// DefaultSource is the data file written by the scraper next to the binary.
	DefaultSource      = "movies.json"
	defaultUserAgent   = "cartelera-cli"
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
)

// Client loads the movie list from an http(s) URL or a local file.
type Client struct {
	httpClient  *http.Client
	fs          afero.Fs
	userAgent   string
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

// APIError is returned when the data server responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "movies request error"
	}
	return fmt.Sprintf("movies request error: %s: %s", e.Status, e.Body)
}

// IsNotFound reports whether the error represents a 404 from the data server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// Cache stores fetched movie lists by source. Load reports whether the
// cached list is still fresh.
type Cache interface {
	Load(source string) ([]model.Movie, bool, error)
	Save(source string, movies []model.Movie) error
}

// NewClient creates a new client. If httpClient is nil, a default client is used.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &Client{
		httpClient:  httpClient,
		fs:          afero.NewOsFs(),
		userAgent:   defaultUserAgent,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
}

// WithFs makes local sources resolve against fsys.
func (c *Client) WithFs(fsys afero.Fs) *Client {
	c.fs = fsys
	return c
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// FetchMovies reads the movie list of source. A source that is not an
// http(s) URL is a path, optionally prefixed with file://.
func (c *Client) FetchMovies(ctx context.Context, source string) ([]model.Movie, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("data source is required")
	}

	var movies []model.Movie
	if isRemote(source) {
		if err := c.getJSON(ctx, source, &movies); err != nil {
			return nil, err
		}
		return movies, nil
	}

	path := strings.TrimPrefix(source, "file://")
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return movies, nil
}

// LoadMovies serves a fresh cached list when there is one, fetches
// otherwise, and falls back to a stale cached list when the fetch fails.
// cache may be nil.
func (c *Client) LoadMovies(ctx context.Context, source string, cache Cache) ([]model.Movie, error) {
	var stale []model.Movie
	if cache != nil {
		cached, fresh, err := cache.Load(source)
		if err != nil {
			log.Printf("[data] read cache for %s: %v", source, err)
		}
		if fresh && len(cached) > 0 {
			return cached, nil
		}
		stale = cached
	}

	movies, err := c.FetchMovies(ctx, source)
	if err != nil {
		if len(stale) > 0 && !errors.Is(err, context.Canceled) {
			log.Printf("[data] fetch %s failed, using cached list: %v", source, err)
			return stale, nil
		}
		return nil, err
	}

	if cache != nil {
		if err := cache.Save(source, movies); err != nil {
			log.Printf("[data] write cache for %s: %v", source, err)
		}
	}
	log.Printf("[data] loaded %d movies from %s", len(movies), source)
	return movies, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		res, err := c.httpClient.Do(req)
		if err != nil {
			if c.shouldRetryNetworkError(err) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
			_ = res.Body.Close()

			apiErr := &APIError{
				StatusCode: res.StatusCode,
				Status:     res.Status,
				Endpoint:   endpoint,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if c.shouldRetryStatus(res.StatusCode) && attempt < maxAttempts {
				log.Printf("[data] %s returned %s, retrying (attempt %d)", endpoint, res.Status, attempt)
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return apiErr
		}

		dec := json.NewDecoder(res.Body)
		err = dec.Decode(out)
		_ = res.Body.Close()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decode response from %s: empty body", endpoint)
		}
		if err != nil {
			return fmt.Errorf("decode response from %s: %w", endpoint, err)
		}
		return nil
	}

	return errors.New("request failed after retries")
}

func (c *Client) shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (c *Client) shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryDelay doubles from retryBase per attempt, capped at retryCap.
func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	limit := c.retryCap
	if limit <= 0 {
		limit = defaultRetryCap
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= limit/2 {
			return limit
		}
		delay *= 2
	}
	return min(delay, limit)
}
