package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize applies a deterministic normalization to a base URL.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Trailing slashes are removed from the path, except for root "/"
//   - Fragments and query parameters are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Canonicalize is pure and idempotent.
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = strings.ToLower(canonical.Scheme)
	canonical.Host = strings.ToLower(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	if len(canonical.Path) > 1 {
		canonical.Path = strings.TrimRight(canonical.Path, "/")
		if canonical.Path == "" {
			canonical.Path = "/"
		}
	}
	canonical.RawPath = ""

	canonical.Fragment = ""
	canonical.RawFragment = ""
	canonical.RawQuery = ""
	canonical.ForceQuery = false

	return canonical
}

// JoinPath resolves a resource path against base: the base path, then
// prefix, then key, joined with exactly one slash between segments.
// The key is appended verbatim apart from leading slashes, so nested
// keys such as "image/describe.md" keep their directory structure.
func JoinPath(base url.URL, prefix string, key string) url.URL {
	joined := base
	segments := []string{
		strings.Trim(base.Path, "/"),
		strings.Trim(prefix, "/"),
		strings.TrimLeft(key, "/"),
	}

	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}

	joined.Path = "/" + strings.Join(parts, "/")
	joined.RawPath = ""
	joined.RawQuery = ""
	joined.Fragment = ""
	return joined
}
