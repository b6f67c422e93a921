package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultGraphBaseURL = "https://graph.facebook.com"

// Client submits conversion envelopes to the vendor's ingestion endpoint.
// Credentials are injected at construction and never logged.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	version     string
	pixelID     string
	accessToken string
}

// ClientConfig configures the ingestion client. BaseURL is overridable for
// tests; Version defaults to v20.0.
type ClientConfig struct {
	BaseURL     string
	Version     string
	PixelID     string
	AccessToken string
	Timeout     time.Duration
}

// NewClient builds an ingestion client. The timeout bounds the full
// round-trip; the vendor call is the longest suspension point in a request.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = "v20.0"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		version:     version,
		pixelID:     cfg.PixelID,
		accessToken: cfg.AccessToken,
	}
}

// Configured reports whether the required credentials are present. Handlers
// answer 500 server-misconfiguration before any outbound call when they are
// not.
func (c *Client) Configured() bool {
	return c.pixelID != "" && c.accessToken != ""
}

// SubmitResult is the vendor's answer to a submission. Body is nil for empty
// (204-style) acknowledgments. OK mirrors a 2xx status.
type SubmitResult struct {
	StatusCode int
	Body       json.RawMessage
	OK         bool
}

// Submit POSTs the envelope. A non-2xx answer is a result, not an error: the
// caller forwards the vendor's status and body verbatim. Errors are transport
// failures only. Exactly one attempt is made.
func (c *Client) Submit(ctx context.Context, envelope Envelope) (*SubmitResult, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s", c.baseURL, c.version, c.pixelID, url.QueryEscape(c.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error stringifies the full request URL, access token included.
		// Unwrap it so the credential never reaches an error message or log.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("submit conversion event to %s/%s/%s/events: %w", c.baseURL, c.version, c.pixelID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read submission response: %w", err)
	}

	result := &SubmitResult{
		StatusCode: resp.StatusCode,
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if len(bytes.TrimSpace(body)) > 0 {
		result.Body = json.RawMessage(body)
	}
	return result, nil
}
