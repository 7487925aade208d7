package interceptor

import (
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// CacheKey identifies a request for caching: a blake2b-256 digest of the
// method and the normalized URL.
func CacheKey(method string, u *url.URL) string {
	if method == "" {
		method = "GET"
	}
	sum := blake2b.Sum256([]byte(strings.ToUpper(method) + " " + NormalizeURL(u)))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL lowercases scheme and host, drops the fragment and user info,
// and sorts query parameters so equivalent URLs share a cache entry.
func NormalizeURL(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	s := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
	if q := u.Query().Encode(); q != "" {
		s += "?" + q
	}
	return s
}
