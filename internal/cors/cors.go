// Package cors stamps the permissive CORS response headers the proxy adds
// to every answer.
package cors

import (
	"net/http"
)

// header names in canonical format
const (
	ACRM = "Access-Control-Request-Method"
	ACRH = "Access-Control-Request-Headers"

	ACAO = "Access-Control-Allow-Origin"
	ACAM = "Access-Control-Allow-Methods"
	ACAH = "Access-Control-Allow-Headers"
	ACEH = "Access-Control-Expose-Headers"
	ACMA = "Access-Control-Max-Age"
	ACAC = "Access-Control-Allow-Credentials"
)

const (
	Wildcard     = "*"
	AllowMethods = "GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS"
	MaxAge       = "86400"
)

// Annotate sets the full CORS header set on dst, overwriting any value the
// target may have sent. An empty origin means the caller sent no Origin
// header and gets the wildcard. Requested headers from the inbound req are
// echoed verbatim.
func Annotate(dst http.Header, origin string, req http.Header) {
	if origin == "" {
		origin = Wildcard
	}
	dst.Set(ACAO, origin)
	dst.Set(ACAM, AllowMethods)
	if vals, ok := req[ACRH]; ok && len(vals) > 0 {
		dst[ACAH] = append([]string(nil), vals...)
	} else {
		dst.Set(ACAH, Wildcard)
	}
	dst.Set(ACEH, Wildcard)
	dst.Set(ACMA, MaxAge)
	dst.Set(ACAC, "true")
}

// ErrorHeaders sets the minimal CORS headers carried by error responses.
func ErrorHeaders(dst http.Header) {
	dst.Set(ACAO, Wildcard)
	dst.Set(ACAM, AllowMethods)
}

// IsPreflight reports whether a request is a CORS preflight.
func IsPreflight(method string, h http.Header) bool {
	if method != http.MethodOptions {
		return false
	}
	_, ok := h[ACRM]
	return ok
}
