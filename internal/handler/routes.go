package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The local
// middleware applies to the endpoints served by the proxy itself, never to
// proxied responses.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, health *HealthHandler, local ...echo.MiddlewareFunc) {
	e.GET("/healthz", health.Healthz, local...)
	e.GET("/proxy/status", health.Status, local...)

	if proxy.mountPath == "" {
		e.Any("/*", proxy.Handle)
		return
	}
	e.Any(proxy.mountPath, proxy.Handle)
	e.Any(proxy.mountPath+"/*", proxy.Handle)
}
