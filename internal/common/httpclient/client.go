// Package httpclient issues the pipeline's outbound webhook calls with a
// bounded per-request timeout.
package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client posts alert payloads to configured webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a client with the given timeout. A zero or negative
// timeout falls back to the default so a misconfigured channel can never
// hang a run.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do sends a prepared request.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// PostJSON sends body to url as an application/json POST. The caller owns
// the response body.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
