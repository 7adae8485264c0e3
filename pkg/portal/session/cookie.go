package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cookie describes the session cookie.
type Cookie struct {
	Name     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieName is used when Cookie.Name is empty.
const DefaultCookieName = "_turingreg"

func (c Cookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// ParseSameSite maps a config value to http.SameSite. Unknown values are Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// ID returns the session id carried by r. Values that are not UUIDs are
// ignored.
func (c Cookie) ID(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(ck.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Ensure returns the request's session id, issuing a new one with a
// Set-Cookie header when there is none.
func (c Cookie) Ensure(w http.ResponseWriter, r *http.Request) string {
	if id, ok := c.ID(r); ok {
		return id
	}
	id := uuid.NewString()
	c.Write(w, id)
	return id
}

// Write sets the cookie to id.
func (c Cookie) Write(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}
