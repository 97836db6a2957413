package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// UpstreamChecker verifies the data portal answers HTTP requests.
type UpstreamChecker struct {
	url    string
	client *http.Client
}

// NewUpstreamChecker creates a checker that probes url. A nil client
// gets a short-timeout default.
func NewUpstreamChecker(url string, client *http.Client) *UpstreamChecker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &UpstreamChecker{url: url, client: client}
}

// Name returns the name of this checker.
func (c *UpstreamChecker) Name() string {
	return "upstream"
}

// Check issues a HEAD request to the portal. Connection failures are
// unhealthy; server errors are degraded, since cached datasets keep the
// service useful while the portal recovers.
func (c *UpstreamChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return Unhealthy("invalid upstream url", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Unhealthy("upstream unreachable", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err))
	}
	defer resp.Body.Close()

	details := map[string]any{
		"url":    c.url,
		"status": resp.StatusCode,
	}

	if resp.StatusCode >= 500 {
		return Degraded(fmt.Sprintf("upstream returned %d", resp.StatusCode)).WithDetails(details)
	}
	return Healthy("upstream reachable").WithDetails(details)
}
