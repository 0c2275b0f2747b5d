package service

import (
	"net/url"
	"strings"

	"legal-gateway/internal/registry"
)

type param struct {
	key   string
	value string
}

// buildQuery derives the outgoing raw query from the inbound one.
//
// Caller parameters keep their original encoding and order when nothing
// collides. Defaults are appended only for absent keys. Forced values and the
// identity aliases replace any caller value and are appended last in declared
// order. The returned values reflect the final query.
func buildQuery(raw string, rt registry.Route, identity string) (string, url.Values) {
	values, _ := url.ParseQuery(raw)

	var appended []param
	override := make(map[string]bool)

	for _, f := range rt.ForceQuery {
		override[f.Key] = true
	}
	for _, d := range rt.QueryDefaults {
		if override[d.Key] || values.Get(d.Key) != "" {
			continue
		}
		appended = append(appended, param{d.Key, d.Value})
	}
	for _, f := range rt.ForceQuery {
		appended = append(appended, param{f.Key, f.Value})
	}
	for _, key := range rt.Identity.QueryKeys {
		override[key] = true
		appended = append(appended, param{key, identity})
	}

	collides := false
	for key := range override {
		if values.Has(key) {
			collides = true
			values.Del(key)
		}
	}
	// Empty-valued defaults are replaced too, so drop them before appending.
	for _, p := range appended {
		if !override[p.key] && values.Has(p.key) {
			collides = true
			values.Del(p.key)
		}
	}
	if collides {
		raw = values.Encode()
	}

	parts := make([]string, 0, len(appended)+1)
	if raw != "" {
		parts = append(parts, raw)
	}
	for _, p := range appended {
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
		values.Set(p.key, p.value)
	}
	return strings.Join(parts, "&"), values
}
