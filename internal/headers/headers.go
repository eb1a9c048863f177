// Package headers decides which headers cross the proxy in each direction.
package headers

import (
	"net/http"
	"strings"
)

// Set is a fixed group of header names, matched case-insensitively.
type Set map[string]struct{}

func newSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[strings.ToLower(n)] = struct{}{}
	}
	return s
}

// Has reports whether name belongs to the set.
func (s Set) Has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// Request lists the headers never replayed to the target: hop-by-hop and
// session headers, plus Host, which is always rewritten.
var Request = newSet(
	"connection",
	"keep-alive",
	"proxy-authenticate",
	"proxy-authorization",
	"te",
	"trailer",
	"transfer-encoding",
	"upgrade",
	"host",
)

// Response lists the target headers never relayed to the client, because
// proxying invalidates their framing or encoding.
var Response = newSet(
	"connection",
	"keep-alive",
	"transfer-encoding",
	"content-encoding",
	"content-length",
)

// Filter returns a copy of src without the headers named in exclude. All
// values of multi-valued headers are kept, byte for byte.
func Filter(src http.Header, exclude Set) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if exclude.Has(key) {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}

// IsWebSocketUpgrade reports whether h asks for a websocket protocol upgrade.
// The first Upgrade value must be exactly "websocket", ignoring case; token
// lists such as "websocket, h2c" are forwarded as plain requests.
func IsWebSocketUpgrade(h http.Header) bool {
	return strings.EqualFold(h.Get("Upgrade"), "websocket")
}
