package header

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"rproxy-go/internal/config"
	"rproxy-go/internal/model"
)

// ErrInvalidContentLength is returned when the client sends a Content-Length
// that is not a non-negative integer.
var ErrInvalidContentLength = errors.New("invalid Content-Length")

// RequestCopier copies client request headers onto the backend request.
type RequestCopier struct {
	targetHost      string
	preserveHost    bool
	preserveCookies bool
	forwardClientIP bool
	cookiePrefix    string
	logger          *slog.Logger
}

// NewRequestCopier creates a RequestCopier for the configured target.
func NewRequestCopier(cfg config.ProxyConfig, logger *slog.Logger) (*RequestCopier, error) {
	u, err := url.Parse(cfg.TargetURI)
	if err != nil {
		return nil, fmt.Errorf("parse target_uri: %w", err)
	}

	return &RequestCopier{
		targetHost:      u.Host,
		preserveHost:    cfg.PreserveHost,
		preserveCookies: cfg.PreserveCookies,
		forwardClientIP: cfg.ForwardClientIP,
		cookiePrefix:    cfg.CookiePrefix,
		logger:          logger.With("component", "request_copier"),
	}, nil
}

// CopyRequestHeaders copies the headers of in onto dst, keeping the order of
// repeated values. Content-Length and hop-by-hop headers are dropped; Host
// and Cookie are rewritten unless preserved.
func (c *RequestCopier) CopyRequestHeaders(in *model.InboundRequest, dst http.Header) {
	for name, values := range in.Header {
		// Content-Length follows the streamed body instead.
		if is(name, ContentLength) || IsHopByHop(name) {
			continue
		}
		if !httpguts.ValidHeaderFieldName(name) {
			c.logger.Debug("skipping invalid request header name", "name", name)
			continue
		}

		for _, v := range values {
			switch {
			case is(name, Host) && !c.preserveHost:
				v = c.targetHost
			case is(name, Cookie) && !c.preserveCookies:
				v = c.RealCookie(v)
				if v == "" {
					continue
				}
			}
			if !httpguts.ValidHeaderFieldValue(v) {
				c.logger.Debug("skipping invalid request header value", "name", name)
				continue
			}
			dst.Add(name, v)
		}
	}
}

// RealCookie keeps the cookies the proxy handed out earlier, strips their
// namespace prefix, and drops every other cookie of the client's domain.
func (c *RequestCopier) RealCookie(value string) string {
	var b strings.Builder
	for _, pair := range strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' }) {
		name, val, ok := strings.Cut(pair, "=")
		if !ok || strings.Contains(val, "=") {
			continue
		}
		name, found := strings.CutPrefix(strings.TrimSpace(name), c.cookiePrefix)
		if !found {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(val))
	}
	return b.String()
}

// SetForwardingHeaders sets X-Forwarded-For and X-Forwarded-Proto on dst when
// client IP forwarding is enabled. Any copied values are replaced.
func (c *RequestCopier) SetForwardingHeaders(in *model.InboundRequest, dst http.Header) {
	if !c.forwardClientIP {
		return
	}

	forwardedFor := in.RemoteAddr
	if existing := in.Header.Get(XForwardedFor); existing != "" {
		forwardedFor = existing + ", " + forwardedFor
	}
	dst.Set(XForwardedFor, forwardedFor)
	dst.Set(XForwardedProto, in.Scheme)
}

// RequestContentLength returns the declared Content-Length of the client
// request, or -1 when none was sent.
func RequestContentLength(h http.Header) (int64, error) {
	values := h.Values(ContentLength)
	if len(values) == 0 {
		return -1, nil
	}
	v := values[0]
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidContentLength, v)
	}
	return n, nil
}
