package handler

import (
	"github.com/labstack/echo/v4"

	"legal-gateway/internal/config"
	"legal-gateway/internal/metrics"
	"legal-gateway/internal/registry"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	for _, rt := range registry.Routes() {
		h := proxy.Route(rt)
		if len(rt.Methods) == 0 {
			e.Any(rt.Path, h)
			continue
		}
		e.Match(rt.Methods, rt.Path, h)
	}
}

// RegisterMetrics exposes the Prometheus registry when metrics are enabled.
func RegisterMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
}
