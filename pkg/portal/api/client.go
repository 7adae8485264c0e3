package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// DefaultBaseURL is used when no API URL is configured.
const DefaultBaseURL = "http://mlcoe.live/api/v1"

const maxBodySize = 1 << 20

// Client calls the student endpoints. Each method makes exactly one request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a client for baseURL (".../api/v1").
func NewClient(baseURL string, timeout time.Duration, logger logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithModule("api"),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ValidateCaptcha asks the backend to verify a challenge token.
func (c *Client) ValidateCaptcha(ctx context.Context, token string, creds *Credentials) error {
	_, err := c.do(ctx, http.MethodPost, "/student/validate", CaptchaValidation{RecaptchaValue: token}, creds)
	return err
}

// Register submits a registration. On success the backend emails a code.
func (c *Client) Register(ctx context.Context, reg Registration, creds *Credentials) (*Result, error) {
	return c.do(ctx, http.MethodPost, "/student/register", reg, creds)
}

// Verify submits the emailed code.
func (c *Client) Verify(ctx context.Context, code, email string, creds *Credentials) (*Result, error) {
	return c.do(ctx, http.MethodPost, "/student/verify", Verification{OTP: code, Email: email}, creds)
}

// ResendOTP asks the backend to email a fresh code.
func (c *Client) ResendOTP(ctx context.Context, email string, creds *Credentials) (*Result, error) {
	path := "/student/resend-otp?email=" + url.QueryEscape(email)
	return c.do(ctx, http.MethodGet, path, nil, creds)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, creds *Credentials) (*Result, error) {
	endpoint := strings.SplitN(path, "?", 2)[0]

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("api: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	creds.apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("api: %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	creds.absorb(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("api: read %s response: %w", endpoint, err)
	}

	c.logger.Debug("Backend response", "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Detail: parseDetail(data)}
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("api: decode %s response: %w", endpoint, err)
	}
	if !result.Success {
		return &result, ErrUnsuccessful
	}
	return &result, nil
}
