// Package model defines the per-request value objects shared by the gateway layers.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// BodyKind tags how a translated response body is emitted to the caller.
type BodyKind string

const (
	BodyJSON   BodyKind = "json"
	BodyBinary BodyKind = "binary"
	BodyText   BodyKind = "text"
)

// ProxyRequest represents an inbound client request to be forwarded upstream.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	RawQuery      string
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64
}

// UpstreamTarget is the resolved origin and path for a single request.
type UpstreamTarget struct {
	Service string
	Origin  *url.URL
	Path    string // escaped form, as it goes on the wire
}

// URL joins the origin and path with the given raw query. Escapes in Path,
// such as %2F inside a segment, reach the upstream unchanged.
func (t UpstreamTarget) URL(rawQuery string) string {
	u := *t.Origin
	if p, err := url.PathUnescape(t.Path); err == nil {
		u.Path = p
		u.RawPath = t.Path
	} else {
		u.Path = t.Path
		u.RawPath = ""
	}
	u.RawQuery = rawQuery
	return u.String()
}

// UpstreamRequest is a fully prepared request ready to be sent to an origin.
type UpstreamRequest struct {
	Service       string
	Method        string
	URL           string
	Header        http.Header
	Body          io.Reader
	ContentLength int64
}

// ProxyResponse represents the upstream response to be translated back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
