// Package client provides the outbound HTTP engine that talks to the backend.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rproxy-go/internal/config"
	"rproxy-go/internal/metrics"
	"rproxy-go/internal/model"
)

// Engine sends rewritten requests to the backend. It never follows
// redirects and keeps no cookie jar: both are the proxy core's job.
// An Engine is safe for concurrent use.
type Engine struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewEngine creates an Engine with connection pooling and the configured
// connect and read timeouts. A timeout of -1 keeps the unbounded default.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewEngine(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Engine {
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}
	if cfg.Proxy.ConnectTimeoutMS > 0 {
		dialer.Timeout = time.Duration(cfg.Proxy.ConnectTimeoutMS) * time.Millisecond
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Proxy.IdleConnections,
		MaxIdleConnsPerHost: cfg.Proxy.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         dialer.DialContext,
		// Bodies are relayed byte for byte, encoded as the backend sent them.
		DisableCompression: true,
	}
	if cfg.Proxy.ReadTimeoutMS > 0 {
		transport.DialContext = readTimeoutDialer(dialer, time.Duration(cfg.Proxy.ReadTimeoutMS)*time.Millisecond)
	}

	return &Engine{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "engine"),
		metrics: m,
	}
}

// Execute sends out to the backend and returns the raw response.
// The caller is responsible for closing the response body. The context
// bounds the whole exchange, including reading the body.
func (e *Engine) Execute(ctx context.Context, out *model.OutboundRequest) (*model.InboundResponse, error) {
	req, err := newRequest(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	e.logger.Debug("upstream request",
		"method", req.Method,
		"uri", out.URI,
	)

	start := time.Now()
	resp, err := e.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via InboundResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if e.metrics != nil {
			e.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if e.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		e.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		e.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	return &model.InboundResponse{
		Status: model.Status{Code: resp.StatusCode, Reason: reasonPhrase(resp)},
		Header: resp.Header,
		Body:   resp.Body,
	}, nil
}

func newRequest(ctx context.Context, out *model.OutboundRequest) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, out.Method, out.URI, nil)
	if err != nil {
		return nil, err
	}

	// net/http never writes the fragment on the request line, so carry it
	// in the raw request target.
	if req.URL.Fragment != "" {
		frag := "#" + req.URL.EscapedFragment()
		if req.URL.RawQuery != "" {
			req.URL.RawQuery += frag
		} else {
			path := req.URL.EscapedPath()
			if path == "" {
				path = "/"
			}
			req.URL.Opaque = path + frag
		}
		req.URL.Fragment, req.URL.RawFragment = "", ""
	}

	req.Header = out.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
		req.Header.Del("Host")
	}

	switch {
	case out.Body == nil || out.ContentLength == 0:
		req.Body = http.NoBody
		req.ContentLength = 0
	default:
		req.Body = io.NopCloser(out.Body)
		req.ContentLength = out.ContentLength
	}
	return req, nil
}

// reasonPhrase extracts the reason phrase from a status line like "200 OK".
func reasonPhrase(resp *http.Response) string {
	_, reason, _ := strings.Cut(resp.Status, " ")
	return reason
}
