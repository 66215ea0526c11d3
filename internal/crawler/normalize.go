package crawler

import (
	"net/url"
	"strings"
)

// trackingParams are query parameter names removed during normalization.
// Keys starting with "utm_" are removed as well; see isTrackingParam.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"dclid":   true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"yclid":   true,
}

// Normalize returns the canonical form of an absolute URL.
//
// The canonical form is used as the deduplication key:
//   - the fragment is removed
//   - tracking query parameters (utm_*, fbclid, gclid, ...) are removed,
//     other parameters keep their original order and encoding
//   - empty query segments and a trailing bare "?" or "&" are removed
//   - scheme and host are lowercased, and an empty path becomes "/"
//
// Two URLs with the same canonical form are the same page.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	return normalizeURL(u), nil
}

// normalizeURL canonicalizes a parsed URL. u is not modified.
func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)

	if c.Host != "" && c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}

	c.RawQuery = stripTrackingParams(c.RawQuery)
	c.ForceQuery = false

	return c.String()
}

// stripTrackingParams removes tracking parameters from a raw query string.
// It works on the raw string so that the order and encoding of the
// remaining parameters are preserved exactly.
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	segments := strings.Split(rawQuery, "&")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		key, _, _ := strings.Cut(seg, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, seg)
	}

	return strings.Join(kept, "&")
}

// isTrackingParam reports whether a query key is on the tracking denylist.
func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || trackingParams[key]
}
