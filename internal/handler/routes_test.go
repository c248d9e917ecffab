package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backend-Path", r.URL.Path)
		_, _ = w.Write([]byte("proxied"))
	}))
	defer upstream.Close()

	tests := []struct {
		name       string
		mountPath  string
		method     string
		path       string
		wantStatus int
		wantPath   string
	}{
		{"GET /healthz", "/proxy", http.MethodGet, "/healthz", http.StatusOK, ""},
		{"GET /proxy/status", "/proxy", http.MethodGet, "/proxy/status", http.StatusOK, ""},
		{"GET mount root", "/proxy", http.MethodGet, "/proxy", http.StatusOK, "/app"},
		{"GET below mount", "/proxy", http.MethodGet, "/proxy/a/b", http.StatusOK, "/app/a/b"},
		{"DELETE below mount", "/proxy", http.MethodDelete, "/proxy/a", http.StatusOK, "/app/a"},
		{"outside mount", "/proxy", http.MethodGet, "/unknown", http.StatusNotFound, ""},
		{"root mount proxies everything", "", http.MethodGet, "/anything/here", http.StatusOK, "/app/anything/here"},
		{"root mount keeps healthz local", "", http.MethodGet, "/healthz", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(upstream.URL + "/app")
			cfg.Proxy.MountPath = tt.mountPath

			local := func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					c.Response().Header().Set("X-Local", "1")
					return next(c)
				}
			}

			e := echo.New()
			RegisterRoutes(e, newTestProxyHandler(t, cfg), NewHealthHandler(cfg, "test"), local)

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("X-Backend-Path"); got != tt.wantPath {
				t.Errorf("backend path = %q, want %q", got, tt.wantPath)
			}
			proxied := tt.wantPath != ""
			if isLocal := rec.Header().Get("X-Local") == "1"; isLocal == proxied && tt.wantStatus == http.StatusOK {
				t.Errorf("local middleware applied = %v on proxied = %v route", isLocal, proxied)
			}
		})
	}
}
