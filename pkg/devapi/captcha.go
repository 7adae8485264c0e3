package devapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaChecker decides whether a widget token is genuine.
type CaptchaChecker interface {
	Check(ctx context.Context, token string) (bool, error)
}

// AcceptAny accepts every non-empty token.
type AcceptAny struct{}

// Check implements CaptchaChecker.
func (AcceptAny) Check(ctx context.Context, token string) (bool, error) {
	return token != "", nil
}

// SiteVerify checks tokens against Google's siteverify endpoint.
type SiteVerify struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

// NewSiteVerify creates a checker. An empty endpoint uses DefaultSiteVerifyURL.
func NewSiteVerify(secret, endpoint string) *SiteVerify {
	if endpoint == "" {
		endpoint = DefaultSiteVerifyURL
	}
	return &SiteVerify{
		secret:     secret,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Check implements CaptchaChecker. Only the success flag is considered.
func (s *SiteVerify) Check(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	form := url.Values{"secret": {s.secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("siteverify: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return false, fmt.Errorf("siteverify: decode: %w", err)
	}
	return body.Success, nil
}

// NewCaptchaChecker returns SiteVerify when a secret is configured.
func NewCaptchaChecker(cfg Config) CaptchaChecker {
	if cfg.RecaptchaSecret == "" {
		return AcceptAny{}
	}
	return NewSiteVerify(cfg.RecaptchaSecret, cfg.SiteVerifyURL)
}
