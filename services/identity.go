package services

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
)

// IdentityKey returns the fast exact-match key of a property. Two properties
// with the same key are the same listing. The first available of normalized
// URL, rounded coordinates, normalized title plus zone and id is used, always
// prefixed with the provider.
func IdentityKey(p *models.Property) string {
	provider := normalizeProvider(p.Provider)
	if u := normalizeURL(p.URL); u != "" {
		return "url:" + provider + ":" + u
	}
	if p.HasCoordinates() {
		return fmt.Sprintf("coord:%s:%.5f,%.5f", provider, *p.Latitude, *p.Longitude)
	}
	if t := extractor.NormalizeKey(p.Title); t != "" {
		return "title:" + provider + ":" + t + "|" + extractor.NormalizeKey(p.Zone)
	}
	return "id:" + provider + ":" + p.ID
}

// keyKind returns the prefix of an identity key.
func keyKind(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}

// normalizeURL drops the scheme, the www prefix, the fragment, tracking
// parameters and the trailing slash. Remaining query parameters are sorted.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.Path, "/")

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range q[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}

	out := host + path
	if len(parts) > 0 {
		out += "?" + strings.Join(parts, "&")
	}
	return out
}
