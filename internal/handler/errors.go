package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"legal-gateway/internal/registry"
	"legal-gateway/internal/service"
)

// identityPattern matches identity query values in URLs embedded in error messages.
var identityPattern = regexp.MustCompile(`(?i)((?:user_id|userId)=)[^&\s"]+`)

// statusEnvelope is the error body of most route families.
type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Service string `json:"service"`
	Details string `json:"details,omitempty"`
}

// legacyEnvelope is the error body of the drafting and document file routes.
type legacyEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeEnvelope writes a gateway-generated error in the route's envelope shape.
func writeEnvelope(c echo.Context, rt registry.Route, code int, message, details string) error {
	if rt.Envelope == registry.EnvelopeLegacy {
		return c.JSON(code, legacyEnvelope{
			Success: false,
			Error:   message,
			Details: details,
		})
	}
	return c.JSON(code, statusEnvelope{
		Status:  "error",
		Message: message,
		Service: rt.Service(),
		Details: details,
	})
}

// mapError converts a forwarding failure into the route's error envelope.
// Transport error text is logged, never returned to the caller.
func (h *ProxyHandler) mapError(c echo.Context, rt registry.Route, err error) error {
	code, message, details := classifyError(err)

	attrs := []any{
		"err", sanitizeError(err),
		"service", rt.Service(),
		"path", c.Request().URL.Path,
		"status", code,
	}
	if code < http.StatusInternalServerError {
		h.logger.Warn("request rejected", attrs...)
	} else {
		h.logger.Error("proxy error", attrs...)
	}

	return writeEnvelope(c, rt, code, message, details)
}

// classifyError returns the status, message and optional details for err.
func classifyError(err error) (int, string, string) {
	var he *echo.HTTPError
	var netErr net.Error
	var dnsErr *net.DNSError
	var urlErr *url.Error

	switch {
	case errors.Is(err, service.ErrMissingDocumentID):
		return http.StatusBadRequest, err.Error(), "pass document_id as a query parameter or in the JSON body"
	case errors.As(err, &he):
		// Raised by the body limit while the request body is read.
		return he.Code, http.StatusText(he.Code), ""
	case errors.Is(err, registry.ErrUnknownRoute), errors.Is(err, service.ErrReadBody):
		return http.StatusInternalServerError, "internal gateway error", ""
	case errors.Is(err, context.Canceled):
		return http.StatusBadGateway, "client disconnected", ""
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusBadGateway, "upstream request timed out", ""
	case errors.As(err, &dnsErr):
		return http.StatusBadGateway, "upstream host unreachable", ""
	case errors.As(err, &urlErr):
		return http.StatusBadGateway, "upstream connection failed", ""
	}
	return http.StatusBadGateway, "upstream request failed", ""
}

// sanitizeError redacts caller identities from error messages that may contain upstream URLs.
func sanitizeError(err error) string {
	return identityPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
