package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"rproxy-go/internal/config"
	"rproxy-go/internal/header"
	"rproxy-go/internal/model"
	"rproxy-go/internal/service"
)

// ProxyHandler forwards every request under the mount path to the backend.
type ProxyHandler struct {
	service   *service.ProxyService
	mountPath string
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service:   svc,
		mountPath: cfg.Proxy.MountPath,
		logger:    logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the backend and streams the response back.
func (h *ProxyHandler) Handle(c echo.Context) error {
	in := h.inboundRequest(c)
	w := &clientResponse{res: c.Response(), logger: h.logger}

	if err := h.service.Serve(c.Request().Context(), in, w); err != nil {
		return h.mapError(c, err)
	}
	return nil
}

func (h *ProxyHandler) inboundRequest(c echo.Context) *model.InboundRequest {
	req := c.Request()

	// net/http lifts Host out of the header map.
	hdr := req.Header.Clone()
	if req.Host != "" {
		hdr.Set(header.Host, req.Host)
	}

	remote := req.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	scheme := connScheme(req)
	return &model.InboundRequest{
		Method:     req.Method,
		PathInfo:   strings.TrimPrefix(req.URL.Path, h.mountPath),
		RawQuery:   req.URL.RawQuery,
		Header:     hdr,
		Body:       req.Body,
		HasBody:    hasBody(req),
		RemoteAddr: remote,
		Scheme:     scheme,
		RequestURL: scheme + "://" + req.Host + req.URL.EscapedPath(),
		MountPath:  h.mountPath,
	}
}

// connScheme is the scheme of the client connection itself. Client-sent
// forwarding headers are not trusted.
func connScheme(req *http.Request) string {
	if req.TLS != nil {
		return "https"
	}
	return "http"
}

// hasBody reports whether the client declared a request body, either by a
// positive Content-Length or by Transfer-Encoding.
func hasBody(req *http.Request) bool {
	if req.ContentLength > 0 || len(req.TransferEncoding) > 0 {
		return true
	}
	return req.ContentLength < 0 && req.Body != nil && req.Body != http.NoBody
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	path := c.Request().URL.Path

	// Status and part of the body are already on the wire.
	if c.Response().Committed {
		h.logger.Warn("response aborted mid-stream",
			"err", err,
			"path", path,
		)
		return nil
	}

	h.logger.Error("proxy error",
		"err", err,
		"path", path,
	)

	if errors.Is(err, header.ErrInvalidContentLength) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid Content-Length",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "backend request timed out",
		})
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "backend request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "backend host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "backend connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "backend request failed",
	})
}

// clientResponse adapts an echo response to model.ClientResponse.
type clientResponse struct {
	res    *echo.Response
	logger *slog.Logger
}

func (r *clientResponse) Header() http.Header { return r.res.Header() }

func (r *clientResponse) Write(p []byte) (int, error) { return r.res.Write(p) }

func (r *clientResponse) Flush() { r.res.Flush() }

func (r *clientResponse) AddCookie(c *model.Cookie) {
	v := c.String()
	if v == "" {
		r.logger.Debug("dropping invalid cookie", "name", c.Name)
		return
	}
	r.res.Header().Add(header.SetCookie, v)
}

// WriteStatus writes the status code. net/http always sends its own reason
// phrase, so a custom one from the backend is only logged.
func (r *clientResponse) WriteStatus(s model.Status) {
	if s.Reason != "" && s.Reason != http.StatusText(s.Code) {
		r.logger.Debug("backend reason phrase not relayed",
			"status", s.Code,
			"reason", s.Reason,
		)
	}
	r.res.WriteHeader(s.Code)
}
