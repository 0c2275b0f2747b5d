package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"legal-gateway/internal/model"
	"legal-gateway/internal/registry"
)

const (
	previewCacheControl  = "public, max-age=3600"
	downloadCacheControl = "no-store"
	defaultFilename      = "document"
)

// classify picks how an upstream body is re-emitted. It looks at headers only,
// so the decision is fixed before any body byte is read.
func classify(rt registry.Route, resp *model.ProxyResponse) model.BodyKind {
	ct := strings.ToLower(resp.Header.Get(echo.HeaderContentType))
	jsonBody := strings.Contains(ct, "application/json")

	switch {
	case resp.Header.Get(echo.HeaderContentDisposition) != "":
		return model.BodyBinary
	case rt.Disposition != registry.DispositionPassthrough && isSuccess(resp.StatusCode) && !jsonBody:
		// Download and preview routes serve files even when the upstream
		// forgets to label them.
		return model.BodyBinary
	case jsonBody:
		return model.BodyJSON
	}
	return model.BodyText
}

// translate writes the upstream response back to the caller. Upstream error
// statuses are passed through with their body, not rewrapped.
func (h *ProxyHandler) translate(c echo.Context, rt registry.Route, resp *model.ProxyResponse) error {
	w := c.Response()

	switch classify(rt, resp) {
	case model.BodyBinary:
		copyHeaders(w.Header(), resp.Header)
		applyDisposition(w.Header(), rt.Disposition)
		w.WriteHeader(resp.StatusCode)
		return h.stream(c, rt, resp.Body)

	case model.BodyJSON:
		return h.writeJSON(c, rt, resp)

	default:
		copyHeaders(w.Header(), resp.Header)
		if w.Header().Get(echo.HeaderContentType) == "" {
			w.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
		}
		w.WriteHeader(resp.StatusCode)
		return h.stream(c, rt, resp.Body)
	}
}

// writeJSON buffers a JSON upstream body and re-emits it. A body that does not
// parse is sent as plain text with the upstream status instead of being
// replaced by a gateway error.
func (h *ProxyHandler) writeJSON(c echo.Context, rt registry.Route, resp *model.ProxyResponse) error {
	w := c.Response()

	// Still compressed: the bytes cannot be inspected, so relay them untouched.
	if enc := resp.Header.Get(echo.HeaderContentEncoding); enc != "" && !strings.EqualFold(enc, "identity") {
		copyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		return h.stream(c, rt, resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Error("reading upstream json body",
			"err", sanitizeError(err),
			"service", rt.Service(),
			"path", c.Request().URL.Path,
		)
		return writeEnvelope(c, rt, http.StatusBadGateway, "upstream response could not be read", "")
	}

	copyHeaders(w.Header(), resp.Header)
	// An empty body (204, HEAD) is not malformed; keep the upstream label.
	if len(body) > 0 && !json.Valid(body) {
		h.logger.Warn("upstream sent malformed json",
			"service", rt.Service(),
			"path", c.Request().URL.Path,
			"status", resp.StatusCode,
		)
		w.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	}
	w.Header().Set(echo.HeaderContentLength, strconv.Itoa(len(body)))
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("writing response body",
			"err", err,
			"service", rt.Service(),
			"path", c.Request().URL.Path,
		)
	}
	return nil
}

// applyDisposition enforces the route's content-disposition policy.
func applyDisposition(h http.Header, d registry.Disposition) {
	switch d {
	case registry.DispositionInline:
		h.Set(echo.HeaderContentDisposition, "inline")
		h.Set(echo.HeaderCacheControl, previewCacheControl)
	case registry.DispositionAttachment:
		h.Set(echo.HeaderContentDisposition, attachmentDisposition(h.Get(echo.HeaderContentDisposition)))
		h.Set(echo.HeaderCacheControl, downloadCacheControl)
	}
}

// attachmentDisposition keeps the upstream filename, if any, under an
// attachment disposition.
func attachmentDisposition(upstream string) string {
	filename := defaultFilename
	if _, params, err := mime.ParseMediaType(upstream); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

// copyHeaders writes upstream headers over any the gateway already set.
func copyHeaders(dst, src http.Header) {
	for key, vals := range src {
		dst[key] = append([]string(nil), vals...)
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
