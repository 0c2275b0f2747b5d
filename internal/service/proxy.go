// Package service prepares inbound requests for their upstream and forwards them.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"legal-gateway/internal/client"
	"legal-gateway/internal/model"
	"legal-gateway/internal/registry"
)

var (
	// ErrMissingDocumentID is returned when improve mode is requested without a document id.
	ErrMissingDocumentID = errors.New("document_id is required when mode is improve")

	// ErrReadBody is returned when a buffered request body cannot be read.
	ErrReadBody = errors.New("read request body")
)

// ProxyService turns an inbound request into an upstream call for a route.
type ProxyService struct {
	client   *client.UpstreamClient
	registry *registry.Registry
	logger   *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.UpstreamClient, reg *registry.Registry, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client:   c,
		registry: reg,
		logger:   logger.With("component", "proxy_service"),
	}
}

// Forward resolves the upstream for rt, rewrites the request and sends it.
// rest is the part of the inbound path after the route prefix. The caller is
// responsible for closing the response body.
func (s *ProxyService) Forward(pr *model.ProxyRequest, rt registry.Route, rest, identity string) (*model.ProxyResponse, error) {
	ur, err := s.Prepare(pr, rt, rest, identity)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("forwarding request",
		"service", ur.Service,
		"method", ur.Method,
		"family", rt.Family,
	)

	resp, err := s.client.Do(pr.Ctx, ur)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", ur.Service, err)
	}
	resp.Header = SanitizeInbound(resp.Header)
	return resp, nil
}

// Prepare builds the upstream request without sending it. Validation failures
// are reported here, before any connection to the upstream is made.
func (s *ProxyService) Prepare(pr *model.ProxyRequest, rt registry.Route, rest, identity string) (*model.UpstreamRequest, error) {
	target, err := s.registry.Resolve(rt.Family, rest)
	if err != nil {
		return nil, err
	}

	rawQuery, query := buildQuery(pr.RawQuery, rt, identity)

	var (
		body          io.Reader = pr.Body
		contentLength           = pr.ContentLength
		buffered      []byte
	)
	if contentLength == 0 || pr.Body == nil || pr.Body == http.NoBody {
		body = http.NoBody
		contentLength = 0
	} else if rt.BufferJSON && isJSON(pr.Header.Get("Content-Type")) {
		buffered, err = io.ReadAll(pr.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadBody, err)
		}
	}

	if rt.RequireDocumentIDForImprove && query.Get("mode") == "improve" {
		buffered, err = requireDocumentID(query, buffered)
		if err != nil {
			return nil, err
		}
	}

	if buffered != nil {
		buffered = reencodeJSON(buffered)
		body = bytes.NewReader(buffered)
		contentLength = int64(len(buffered))
	}

	header := SanitizeOutbound(pr.Header)
	injectHeaders(header, rt.Identity, identity)

	return &model.UpstreamRequest{
		Service:       target.Service,
		Method:        pr.Method,
		URL:           target.URL(rawQuery),
		Header:        header,
		Body:          body,
		ContentLength: contentLength,
	}, nil
}

// requireDocumentID checks that improve mode carries a document id, either in
// the query or in a buffered JSON body. An id known only from the query is
// written into the JSON body so the upstream sees it in both places.
func requireDocumentID(query url.Values, body []byte) ([]byte, error) {
	fromQuery := strings.TrimSpace(query.Get("document_id"))
	inBody := body != nil && gjson.ValidBytes(body) && strings.TrimSpace(gjson.GetBytes(body, "document_id").String()) != ""

	switch {
	case inBody:
		return body, nil
	case fromQuery == "":
		return nil, ErrMissingDocumentID
	case body != nil && gjson.ValidBytes(body) && gjson.ParseBytes(body).IsObject():
		patched, err := sjson.SetBytes(body, "document_id", fromQuery)
		if err != nil {
			return body, nil
		}
		return patched, nil
	}
	return body, nil
}

// reencodeJSON compacts a valid JSON body. Invalid bodies are returned as-is
// so the upstream can report its own error.
func reencodeJSON(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return body
	}
	return buf.Bytes()
}

// isJSON reports whether a Content-Type value denotes a JSON document.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
