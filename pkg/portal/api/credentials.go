package api

import "net/http"

// Credentials is what the backend knows a visitor by: the cookies it set and
// the visitor's address. The backend remembers who registered by client
// address, so the portal forwards it on every call.
type Credentials struct {
	Cookies  map[string]string `json:"cookies,omitempty"`
	ClientIP string            `json:"-"`
}

func (c *Credentials) apply(req *http.Request) {
	if c == nil {
		return
	}
	for name, value := range c.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if c.ClientIP != "" {
		req.Header.Set("X-Forwarded-For", c.ClientIP)
	}
}

// absorb records cookies set by resp. Expired cookies are dropped.
func (c *Credentials) absorb(resp *http.Response) {
	if c == nil {
		return
	}
	for _, ck := range resp.Cookies() {
		if c.Cookies == nil {
			c.Cookies = make(map[string]string)
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.Cookies, ck.Name)
			continue
		}
		c.Cookies[ck.Name] = ck.Value
	}
}
