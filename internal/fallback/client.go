// Package fallback talks to the external detection service used as the last
// tier of the scan cascade. The service is best-effort: one request, a hard
// deadline, no retries. If it cannot answer in time the scan is simply a miss.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultEndpoint is where the sidecar service listens by default.
	DefaultEndpoint = "http://127.0.0.1:8008/detect"

	// DefaultTimeout bounds the whole request. The fallback sits at the end
	// of an already slow path; waiting longer than this is worse than a miss.
	DefaultTimeout = 800 * time.Millisecond

	maxResponseBytes = 1 << 20
)

var (
	// ErrUnavailable reports that the service could not be reached or did
	// not answer within the deadline.
	ErrUnavailable = errors.New("fallback: service unavailable")

	// ErrNoDetection reports that the service answered but found no code.
	ErrNoDetection = errors.New("fallback: no QR code detected")
)

// response is the service's JSON answer.
type response struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Client posts raw image bytes to the detection service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithEndpoint overrides the service URL.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithTimeout overrides the request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger overrides the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a fallback client with the default endpoint and deadline.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect sends the original image bytes and returns the decoded QR content.
// Connection errors and timeouts come back as ErrUnavailable; a well-formed
// negative answer comes back as ErrNoDetection.
func (c *Client) Detect(ctx context.Context, imageData []byte) (string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("fallback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("fallback request failed", "endpoint", c.endpoint, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("fallback rejected request", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	if !parsed.Success || parsed.Data == "" {
		return "", ErrNoDetection
	}

	c.logger.Debug("fallback detection succeeded",
		"endpoint", c.endpoint,
		"duration", time.Since(start),
		"length", len(parsed.Data))
	return parsed.Data, nil
}
