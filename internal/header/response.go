package header

import (
	"log/slog"
	"time"

	"golang.org/x/net/http/httpguts"

	"rproxy-go/internal/config"
	"rproxy-go/internal/metrics"
	"rproxy-go/internal/model"
	"rproxy-go/internal/uri"
)

// ResponseCopier copies backend response headers back to the client,
// rewriting redirects and cookies into the proxy's namespace.
type ResponseCopier struct {
	target          string
	preserveCookies bool
	cookiePrefix    string
	logger          *slog.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewResponseCopier creates a ResponseCopier for the configured target.
// The metrics parameter is optional; pass nil to disable rewrite counters.
func NewResponseCopier(cfg config.ProxyConfig, logger *slog.Logger, m *metrics.Metrics) *ResponseCopier {
	return &ResponseCopier{
		target:          cfg.TargetURI,
		preserveCookies: cfg.PreserveCookies,
		cookiePrefix:    cfg.CookiePrefix,
		logger:          logger.With("component", "response_copier"),
		metrics:         m,
		now:             time.Now,
	}
}

// CopyResponseHeaders copies the backend headers of resp onto w. It must run
// before the status is written.
func (c *ResponseCopier) CopyResponseHeaders(resp *model.InboundResponse, in *model.InboundRequest, w model.ClientResponse) {
	dst := w.Header()
	for name, values := range resp.Header {
		if IsHopByHop(name) {
			continue
		}
		if !httpguts.ValidHeaderFieldName(name) {
			c.logger.Debug("skipping invalid response header name", "name", name)
			continue
		}

		for _, v := range values {
			switch {
			case is(name, SetCookie), is(name, SetCookie2):
				c.copyProxyCookie(in, w, v)
				continue
			case is(name, Location):
				rewritten := uri.RewriteLocation(v, c.target, in.RequestURL, in.MountPath)
				if rewritten != v && c.metrics != nil {
					c.metrics.RedirectsRewritten.Inc()
				}
				v = rewritten
			}
			if !httpguts.ValidHeaderFieldValue(v) {
				c.logger.Debug("skipping invalid response header value", "name", name)
				continue
			}
			dst.Add(name, v)
		}
	}
}

// copyProxyCookie renames backend cookies with the namespace prefix and
// scopes them to the mount path. The domain is never set, so the cookie
// belongs to the proxy's own origin.
func (c *ResponseCopier) copyProxyCookie(in *model.InboundRequest, w model.ClientResponse, value string) {
	path := in.MountPath
	if path == "" {
		path = "/"
	}

	cookies, err := ParseSetCookie(value, c.now())
	if err != nil {
		c.logger.Debug("skipping unparsable cookie", "err", err)
	}

	for _, bc := range cookies {
		name := bc.Name
		if !c.preserveCookies {
			name = c.cookiePrefix + name
			if c.metrics != nil {
				c.metrics.CookiesRewritten.Inc()
			}
		}
		w.AddCookie(&model.Cookie{
			Name:     name,
			Value:    bc.Value,
			Path:     path,
			MaxAge:   bc.MaxAge,
			Secure:   bc.Secure,
			HttpOnly: bc.HttpOnly,
			Version:  bc.Version,
			Comment:  bc.Comment,
		})
	}
}
