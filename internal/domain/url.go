package domain

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that never change what a page shows
var trackingParams = map[string]struct{}{
	"source": {},
	"ref":    {},
	"src":    {},
	"trk":    {},
}

// NormalizeURL maps every spelling of a posting URL to one identity.
// Host is lowercased, trailing slashes and the fragment are dropped and
// tracking parameters are removed. Path case and the order of the
// remaining parameters are kept.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return normalizeRelative(raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(strings.TrimRight(u.EscapedPath(), "/"))

	if q := cleanQuery(u.RawQuery); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String()
}

// normalizeRelative applies the same rules to a URL that has no host
func normalizeRelative(raw string) string {
	raw, _, _ = strings.Cut(raw, "#")
	path, query, _ := strings.Cut(raw, "?")
	path = strings.TrimRight(path, "/")
	if q := cleanQuery(query); q != "" {
		return path + "?" + q
	}
	return path
}

func cleanQuery(raw string) string {
	if raw == "" {
		return ""
	}
	kept := make([]string, 0, 4)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if isTrackingParam(name) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(name string) bool {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "utm_") {
		return true
	}
	_, ok := trackingParams[name]
	return ok
}

// Host returns the lowercased host of a URL, or "" when it has none
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
