// Package moderation calls the external image moderation service. A request
// either passes, is rejected with the upstream status, or fails terminally;
// there are no retries.
package moderation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CheckError reports a moderation rejection with the upstream status code.
type CheckError struct {
	StatusCode int
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("moderation check failed with status %d", e.StatusCode)
}

// Client talks to the moderation HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a moderation client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Check streams the raw image to POST {base}/api/check/{userId}. A non-2xx
// response yields a CheckError carrying the upstream status.
func (c *Client) Check(ctx context.Context, userID string, image io.Reader) error {
	url := fmt.Sprintf("%s/api/check/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, image)
	if err != nil {
		return fmt.Errorf("build moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call moderation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &CheckError{StatusCode: resp.StatusCode}
	}
	return nil
}
