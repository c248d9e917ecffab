// Package service implements the core proxy forwarding logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"rproxy-go/internal/client"
	"rproxy-go/internal/config"
	"rproxy-go/internal/header"
	"rproxy-go/internal/metrics"
	"rproxy-go/internal/model"
	"rproxy-go/internal/relay"
	"rproxy-go/internal/uri"
)

// upstream performs the outbound call. *client.Engine implements it.
type upstream interface {
	Execute(ctx context.Context, out *model.OutboundRequest) (*model.InboundResponse, error)
}

// ProxyService drives one inbound request through a full backend exchange:
// URI and header translation, the outbound call, response header
// translation, and the status and body relay.
type ProxyService struct {
	engine   upstream
	rewriter *uri.Rewriter
	request  *header.RequestCopier
	response *header.ResponseCopier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewProxyService creates a ProxyService for the configured target.
// The metrics parameter is optional; pass nil to disable relay and rewrite counters.
func NewProxyService(cfg *config.Config, engine *client.Engine, logger *slog.Logger, m *metrics.Metrics, opts ...uri.Option) (*ProxyService, error) {
	return newProxyService(cfg, engine, logger, m, opts...)
}

func newProxyService(cfg *config.Config, engine upstream, logger *slog.Logger, m *metrics.Metrics, opts ...uri.Option) (*ProxyService, error) {
	request, err := header.NewRequestCopier(cfg.Proxy, logger)
	if err != nil {
		return nil, fmt.Errorf("create request copier: %w", err)
	}

	return &ProxyService{
		engine:   engine,
		rewriter: uri.NewRewriter(cfg.Proxy.TargetURI, cfg.Proxy.SendURLFragment, opts...),
		request:  request,
		response: header.NewResponseCopier(cfg.Proxy, logger, m),
		logger:   logger.With("component", "proxy_service"),
		metrics:  m,
	}, nil
}

// NewOutboundRequest translates in into the request sent to the backend.
// A malformed Content-Length is fatal and wraps header.ErrInvalidContentLength.
func (s *ProxyService) NewOutboundRequest(in *model.InboundRequest) (*model.OutboundRequest, error) {
	length, err := header.RequestContentLength(in.Header)
	if err != nil {
		return nil, err
	}

	h := make(http.Header, len(in.Header)+2)
	s.request.CopyRequestHeaders(in, h)
	s.request.SetForwardingHeaders(in, h)

	out := &model.OutboundRequest{
		Method: in.Method,
		URI:    s.rewriter.RewriteURL(in),
		Header: h,
	}
	if in.HasBody {
		out.Body = in.Body
		out.ContentLength = length
	}
	return out, nil
}

// Serve forwards in to the backend and writes the translated response to w.
// The backend body is always closed. Errors returned before any status was
// written leave w untouched; a relay error means the response is already
// committed and was cut short. Nothing is retried.
func (s *ProxyService) Serve(ctx context.Context, in *model.InboundRequest, w model.ClientResponse) error {
	out, err := s.NewOutboundRequest(in)
	if err != nil {
		return err
	}

	s.logger.Debug("forwarding request",
		"method", out.Method,
		"path", in.PathInfo,
	)

	resp, err := s.engine.Execute(ctx, out)
	if err != nil {
		return fmt.Errorf("forward to backend: %w", err)
	}

	s.response.CopyResponseHeaders(resp, in, w)

	if err := relay.Relay(w, resp); err != nil {
		if s.metrics != nil {
			s.metrics.RelayAborts.Inc()
		}
		return fmt.Errorf("relay response: %w", err)
	}
	return nil
}
