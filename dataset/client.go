package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// NYC Open Data resource IDs.
const (
	ParksResource       = "enfh-gkve" // Parks Properties
	RestaurantsResource = "43nn-pn8j" // Restaurant Inspection Results
	StationsResource    = "kk4q-3rt2" // Subway Stations
)

// DefaultHost is the NYC Open Data Socrata host.
const DefaultHost = "https://data.cityofnewyork.us"

// Retry backoff bounds for transient upstream failures.
const (
	maxRetries = 5
	baseDelay  = 1 * time.Second
	maxDelay   = 32 * time.Second
)

// HTTPError captures unexpected status codes and response bodies.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// userAgentRoundTripper adds a User-Agent header to every request.
type userAgentRoundTripper struct {
	wrapped   http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone request to avoid mutating the original
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.userAgent)
	return rt.wrapped.RoundTrip(clone)
}

// ClientConfig configures a Socrata client.
type ClientConfig struct {
	// Host is the Socrata host. Defaults to DefaultHost.
	Host string

	// AppToken is sent as X-App-Token when set; unauthenticated requests
	// share a much smaller rate-limit pool.
	AppToken string

	// UserAgent identifies this client to the upstream.
	UserAgent string

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
}

// Client fetches dataset rows from a Socrata host with bounded
// exponential-backoff retries on transient failures.
type Client struct {
	host       string
	appToken   string
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

// sleepContext waits for d or until ctx is cancelled, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewClient creates a Socrata client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "parkscout"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &userAgentRoundTripper{
			wrapped:   transport,
			userAgent: cfg.UserAgent,
		},
	}

	return &Client{
		host:       cfg.Host,
		appToken:   cfg.AppToken,
		httpClient: httpClient,
		sleep:      sleepContext,
	}
}

// Fetch downloads up to limit rows of the given resource as raw JSON.
// Transient upstream failures (429, 5xx) are retried with exponential
// backoff and jitter; other failures are returned immediately.
func (c *Client) Fetch(ctx context.Context, resource string, limit int) ([]byte, error) {
	u := fmt.Sprintf("%s/resource/%s.json?%s", c.host, url.PathEscape(resource),
		url.Values{"$limit": []string{strconv.Itoa(limit)}}.Encode())

	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt < maxRetries; attempt++ {
		body, err := c.fetchOnce(ctx, u)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt == maxRetries-1 {
			break
		}

		// apply jitter so clients don't retry in lockstep
		jitter := time.Duration(rand.Int63n(int64(delay)))
		if err := c.sleep(ctx, delay+jitter); err != nil {
			return nil, err
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dataset: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// retryable reports whether the error is a transient upstream failure.
func retryable(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// setSleepForTest replaces the backoff sleeper in tests.
func (c *Client) setSleepForTest(sleep func(ctx context.Context, d time.Duration) error) {
	c.sleep = sleep
}
