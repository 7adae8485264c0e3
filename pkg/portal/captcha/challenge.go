// Package captcha abstracts the bot-check widget shown on the registration
// form. The widget runs in the browser; the portal only sees the token it
// produced.
package captcha

import (
	"context"
	"net/http"
	"sync"
)

// ResponseField is the form field the reCAPTCHA widget fills in.
const ResponseField = "g-recaptcha-response"

// DefaultSiteKey is the public widget key used when none is configured.
const DefaultSiteKey = "6LfGaa8rAAAAAC7YlsrcYzwAYPZKO0nny7TFQn65"

// Challenge is one widget instance for one submission.
type Challenge interface {
	// Execute returns the token, or "" when the visitor has not passed the check.
	Execute(ctx context.Context) (string, error)
	// Reset discards the current token. The next Execute returns "".
	Reset()
}

// Provider creates the challenge for a request.
type Provider interface {
	// SiteKey is rendered into the page. Empty means no widget script is loaded.
	SiteKey() string
	// Challenge returns nil when the request shows the widget never loaded.
	Challenge(r *http.Request) Challenge
}

type tokenChallenge struct {
	mu    sync.Mutex
	token string
}

func (c *tokenChallenge) Execute(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *tokenChallenge) Reset() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// NewToken returns a challenge that yields token until reset.
func NewToken(token string) Challenge {
	return &tokenChallenge{token: token}
}

// Recaptcha reads invisible reCAPTCHA tokens from posted forms.
type Recaptcha struct {
	siteKey string
}

// NewRecaptcha creates a provider for siteKey.
func NewRecaptcha(siteKey string) *Recaptcha {
	if siteKey == "" {
		siteKey = DefaultSiteKey
	}
	return &Recaptcha{siteKey: siteKey}
}

// SiteKey returns the public widget key.
func (p *Recaptcha) SiteKey() string { return p.siteKey }

// Challenge returns nil when the form lacks the response field entirely,
// which happens when the widget script failed to load.
func (p *Recaptcha) Challenge(r *http.Request) Challenge {
	if err := r.ParseForm(); err != nil {
		return nil
	}
	values, ok := r.PostForm[ResponseField]
	if !ok {
		return nil
	}
	token := ""
	if len(values) > 0 {
		token = values[0]
	}
	return NewToken(token)
}

// Static issues a fixed token for every request. It is meant for local
// development against a backend that accepts any token.
type Static struct {
	token string
}

// NewStatic creates a static provider.
func NewStatic(token string) *Static {
	if token == "" {
		token = "dev-token"
	}
	return &Static{token: token}
}

// SiteKey is empty: no widget is rendered.
func (p *Static) SiteKey() string { return "" }

// Challenge always yields the static token.
func (p *Static) Challenge(r *http.Request) Challenge {
	return NewToken(p.token)
}
