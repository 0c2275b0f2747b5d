package service

import (
	"net/http"

	"legal-gateway/internal/registry"
)

// outboundStrip are request headers the gateway's own transport recomputes.
// Content-Type is deliberately absent: multipart boundaries live in it.
var outboundStrip = []string{
	"Host",
	"Content-Length",
	"Connection",
}

// inboundStrip are upstream response headers dropped before re-emitting.
var inboundStrip = []string{
	"Transfer-Encoding",
}

// SanitizeOutbound returns a copy of h without framing and hop-by-hop headers.
// Every other header, including cookies, passes through unchanged.
func SanitizeOutbound(h http.Header) http.Header {
	dst := h.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, key := range outboundStrip {
		dst.Del(key)
	}
	return dst
}

// SanitizeInbound returns a copy of h suitable for writing back to the caller.
func SanitizeInbound(h http.Header) http.Header {
	dst := h.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, key := range inboundStrip {
		dst.Del(key)
	}
	return dst
}

// injectHeaders sets the identity under every header alias of the route.
func injectHeaders(h http.Header, inj registry.Injection, identity string) {
	for _, key := range inj.HeaderKeys {
		h.Set(key, identity)
	}
}
