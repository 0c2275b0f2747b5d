package handler

import (
	"io"
	"log/slog"
	"net/url"

	"github.com/labstack/echo/v4"

	"legal-gateway/internal/identity"
	"legal-gateway/internal/model"
	"legal-gateway/internal/registry"
	"legal-gateway/internal/service"
)

// ProxyHandler forwards gateway routes to their upstream services.
type ProxyHandler struct {
	service  *service.ProxyService
	identity *identity.Resolver
	logger   *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, res *identity.Resolver, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service:  svc,
		identity: res,
		logger:   logger.With("component", "proxy_handler"),
	}
}

// Route returns the Echo handler that forwards requests according to rt.
func (h *ProxyHandler) Route(rt registry.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h.handle(c, rt)
	}
}

func (h *ProxyHandler) handle(c echo.Context, rt registry.Route) error {
	req := c.Request()
	// The upstream may fail before reading the body; release it either way.
	defer func() { _ = req.Body.Close() }()

	// The request id is minted on the response; send it upstream too so logs correlate.
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" && req.Header.Get(echo.HeaderXRequestID) == "" {
		req.Header.Set(echo.HeaderXRequestID, id)
	}

	var rest string
	if rt.Param != "" {
		rest = escapedParam(c, rt.Param)
	}

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	resp, err := h.service.Forward(pr, rt, rest, h.identity.Resolve(req))
	if err != nil {
		return h.mapError(c, rt, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return h.translate(c, rt, resp)
}

// escapedParam returns a path parameter in escaped form. Echo matches on the
// raw path when the request carries non-default escapes and on the decoded
// path otherwise, so the value is escaped only in the second case.
func escapedParam(c echo.Context, name string) string {
	v := c.Param(name)
	if c.Request().URL.RawPath != "" {
		return v
	}
	return (&url.URL{Path: v}).EscapedPath()
}

// stream copies an upstream body to the client. If io.Copy fails mid-stream
// (e.g. client disconnect, network error), the HTTP status code has already
// been sent, so the client receives a truncated response with the original
// status; the error is only logged.
func (h *ProxyHandler) stream(c echo.Context, rt registry.Route, body io.Reader) error {
	if _, err := io.Copy(c.Response(), body); err != nil {
		h.logger.Error("streaming response body",
			"err", sanitizeError(err),
			"service", rt.Service(),
			"path", c.Request().URL.Path,
		)
	}
	return nil
}
