package header

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rproxy-go/internal/model"
)

// ParseSetCookie parses a Set-Cookie or Set-Cookie2 header value. Values
// in the RFC 2965 style may list several comma-separated cookies.
// Cookies that fail to parse are left out and reported in the joined error;
// the others are still returned.
func ParseSetCookie(value string, now time.Time) ([]*model.Cookie, error) {
	parts := []string{value}
	if isMultiCookie(value) {
		parts = splitMultiCookies(value)
	}

	var (
		cookies []*model.Cookie
		errs    []error
	)
	for _, part := range parts {
		hc, err := http.ParseSetCookie(strings.TrimSpace(part))
		if err != nil {
			errs = append(errs, fmt.Errorf("parse cookie %q: %w", part, err))
			continue
		}
		cookies = append(cookies, fromHTTPCookie(hc, now))
	}
	return cookies, errors.Join(errs...)
}

func fromHTTPCookie(hc *http.Cookie, now time.Time) *model.Cookie {
	c := &model.Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Path:     hc.Path,
		Domain:   hc.Domain,
		Secure:   hc.Secure,
		HttpOnly: hc.HttpOnly,
		MaxAge:   -1,
	}

	switch {
	case hc.MaxAge > 0:
		c.MaxAge = hc.MaxAge
	case hc.MaxAge < 0:
		c.MaxAge = 0
	case !hc.Expires.IsZero():
		c.MaxAge = max(int(hc.Expires.Sub(now)/time.Second), 0)
	}

	for _, attr := range hc.Unparsed {
		key, val, _ := strings.Cut(attr, "=")
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "version":
			if v, err := strconv.Atoi(val); err == nil {
				c.Version = v
			}
		case "comment":
			c.Comment = val
		}
	}
	return c
}

// isMultiCookie reports whether a header value may hold a comma-separated
// cookie list. An Expires date contains a comma, so it marks a single
// Netscape cookie even when Version or Max-Age is also present.
func isMultiCookie(value string) bool {
	v := strings.ToLower(value)
	if strings.Contains(v, "expires=") {
		return false
	}
	return strings.Contains(v, "version=") || strings.Contains(v, "max-age")
}

// splitMultiCookies splits on commas outside double quotes.
func splitMultiCookies(s string) []string {
	var (
		parts  []string
		quoted bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
