// Package header translates headers and cookies between the client leg and
// the backend leg of a proxied exchange.
//
// Both directions drop hop-by-hop headers. Requests get their Host and Cookie
// headers rewritten for the backend; responses get Location and Set-Cookie
// rewritten for the client.
package header

import (
	"net/http"
	"strings"
)

// Header names handled specially by the copiers.
const (
	ContentLength   = "Content-Length"
	Host            = "Host"
	Cookie          = "Cookie"
	SetCookie       = "Set-Cookie"
	SetCookie2      = "Set-Cookie2"
	Location        = "Location"
	XForwardedFor   = "X-Forwarded-For"
	XForwardedProto = "X-Forwarded-Proto"
)

// hopByHop lists headers meaningful only for a single transport leg, keyed
// by canonical name. Read-only after init.
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// IsHopByHop reports whether name is a hop-by-hop header, ignoring case.
func IsHopByHop(name string) bool {
	_, ok := hopByHop[http.CanonicalHeaderKey(name)]
	return ok
}

func is(name, want string) bool {
	return strings.EqualFold(name, want)
}
