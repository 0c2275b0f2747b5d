// Package identity derives the caller label attached to forwarded requests.
//
// The label is not an authentication decision. A bearer token is accepted on
// presence alone and mapped to a fixed placeholder; downstream services rely
// on that lenient contract.
package identity

import (
	"net/http"
	"strings"

	"legal-gateway/internal/config"
)

// cookieNames are checked in order after the identity header.
var cookieNames = []string{"userId", "user_id"}

// Resolver computes the identity of an inbound request.
type Resolver struct {
	header      string
	defaultUser string
	bearerUser  string
}

// NewResolver creates a Resolver from the identity configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		header:      cfg.Identity.Header,
		defaultUser: cfg.Identity.DefaultUser,
		bearerUser:  cfg.Identity.BearerUser,
	}
}

// Resolve returns the identity for r. The first non-blank source wins:
// identity header, userId cookie, user_id cookie, bearer token placeholder,
// default identity. The result is never empty.
func (res *Resolver) Resolve(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(res.header)); v != "" {
		return v
	}
	for _, name := range cookieNames {
		if c, err := r.Cookie(name); err == nil {
			if v := strings.TrimSpace(c.Value); v != "" {
				return v
			}
		}
	}
	if hasBearer(r.Header.Get("Authorization")) {
		return res.bearerUser
	}
	return res.defaultUser
}

// hasBearer reports whether an Authorization value carries a non-empty bearer token.
func hasBearer(auth string) bool {
	scheme, token, ok := strings.Cut(strings.TrimSpace(auth), " ")
	return ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != ""
}
