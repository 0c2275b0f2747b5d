// Package registry maps inbound route families to upstream origins and paths.
//
// The registry is built once from configuration at start-up and is read-only
// afterwards, so it is safe for concurrent use without locking.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"legal-gateway/internal/config"
	"legal-gateway/internal/model"
)

// ErrUnknownRoute is returned when a family has no registered rule.
var ErrUnknownRoute = errors.New("no upstream registered for route family")

// Service tags identify the upstream a request is sent to. They appear in
// error envelopes, logs and metric labels.
const (
	ServiceAnalyzer      = "analyzer"
	ServiceBackend       = "backend"
	ServiceLegalResearch = "legal-research"
	ServiceDrafting      = "drafting"
)

// Family names a group of inbound routes sharing one path-rewrite rule.
type Family string

const (
	FamilyAnalyzer          Family = "analyzer"
	FamilyAuth              Family = "auth"
	FamilyCases             Family = "cases"
	FamilyDocuments         Family = "documents"
	FamilyDocumentDownload  Family = "document-download"
	FamilyDocumentPreview   Family = "document-preview"
	FamilyLegalResearch     Family = "legal-research"
	FamilyUser              Family = "user"
	FamilyDraftingUpload    Family = "drafting-upload"
	FamilyDraftingImprove   Family = "drafting-improve"
	FamilyDraftingVoiceChat Family = "drafting-voice-chat"
)

// rule rewrites the remainder of an inbound path into an upstream path.
type rule struct {
	service string
	rewrite func(rest string) string
}

var rules = map[Family]rule{
	FamilyAnalyzer: {ServiceAnalyzer, func(rest string) string {
		// The analyzer health probe lives on the origin root, not under /analyzer.
		if rest == "health" {
			return "/health"
		}
		return "/analyzer/" + rest
	}},
	FamilyAuth: {ServiceBackend, func(rest string) string {
		return "/api/auth/" + rest
	}},
	FamilyCases: {ServiceBackend, func(rest string) string {
		if rest == "" {
			return "/api/cases"
		}
		return "/api/cases/" + rest
	}},
	FamilyDocuments: {ServiceBackend, func(rest string) string {
		return "/api/documents/" + rest
	}},
	FamilyDocumentDownload: {ServiceBackend, documentDownload},
	// Preview reads the same upstream endpoint; only the outbound disposition differs.
	FamilyDocumentPreview: {ServiceBackend, documentDownload},
	FamilyLegalResearch: {ServiceLegalResearch, func(rest string) string {
		return "/" + strings.Trim(rest, "/") + "/"
	}},
	FamilyUser: {ServiceBackend, func(string) string {
		return "/api/user"
	}},
	FamilyDraftingUpload: {ServiceDrafting, func(string) string {
		return "/upload"
	}},
	FamilyDraftingImprove: {ServiceDrafting, func(string) string {
		return "/improve"
	}},
	FamilyDraftingVoiceChat: {ServiceDrafting, func(string) string {
		return "/voice-chat"
	}},
}

func documentDownload(id string) string {
	return "/api/documents/" + id + "/download"
}

// Registry resolves route families to upstream targets.
type Registry struct {
	origins map[string]*url.URL
}

// New builds a Registry from the configured service origins.
func New(cfg *config.Config) (*Registry, error) {
	raw := map[string]string{
		ServiceAnalyzer:      cfg.Services.AnalyzerURL,
		ServiceBackend:       cfg.Services.BackendURL,
		ServiceLegalResearch: cfg.Services.LegalResearchURL,
		ServiceDrafting:      cfg.Services.DraftingURL,
	}
	origins := make(map[string]*url.URL, len(raw))
	for service, s := range raw {
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse %s origin: %w", service, err)
		}
		origins[service] = u
	}
	return &Registry{origins: origins}, nil
}

// Resolve returns the upstream target for a family and the remainder of the
// inbound path matched after the family's prefix. rest must be in escaped form.
func (r *Registry) Resolve(f Family, rest string) (model.UpstreamTarget, error) {
	ru, ok := rules[f]
	if !ok {
		return model.UpstreamTarget{}, fmt.Errorf("%w: %q", ErrUnknownRoute, f)
	}
	origin, ok := r.origins[ru.service]
	if !ok {
		return model.UpstreamTarget{}, fmt.Errorf("%w: no origin for service %q", ErrUnknownRoute, ru.service)
	}
	return model.UpstreamTarget{
		Service: ru.service,
		Origin:  origin,
		Path:    strings.TrimSuffix(origin.EscapedPath(), "/") + ru.rewrite(rest),
	}, nil
}

// Origins returns the configured origin of every service, keyed by service tag.
func (r *Registry) Origins() map[string]string {
	out := make(map[string]string, len(r.origins))
	for service, u := range r.origins {
		out[service] = u.String()
	}
	return out
}

// ServiceOf returns the service tag a family forwards to.
func ServiceOf(f Family) string {
	return rules[f].service
}
