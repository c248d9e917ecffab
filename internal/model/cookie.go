package model

import (
	"net/http"
	"strconv"
	"strings"
)

// Cookie is a cookie handed to the client. MaxAge follows the servlet
// convention: -1 is a session cookie, 0 deletes, positive is seconds.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HttpOnly bool
	Version  int
	Comment  string
}

// String renders the cookie as a Set-Cookie header value.
func (c *Cookie) String() string {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	switch {
	case c.MaxAge == 0:
		hc.MaxAge = -1
	case c.MaxAge > 0:
		hc.MaxAge = c.MaxAge
	}

	s := hc.String()
	if s == "" || c.Version < 1 {
		return s
	}

	// net/http has no notion of RFC 2109 attributes.
	var b strings.Builder
	b.WriteString(s)
	if c.Comment != "" {
		b.WriteString("; Comment=")
		b.WriteString(strconv.Quote(c.Comment))
	}
	b.WriteString("; Version=")
	b.WriteString(strconv.Itoa(c.Version))
	return b.String()
}
