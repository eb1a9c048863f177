// Package origin decides which browser origins may use the proxy.
package origin

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/net/http/httpguts"

	"holy-cors/internal/config"
)

const headerOrigin = "Origin"

// ErrInvalidHeader is returned when the Origin header is not valid text.
var ErrInvalidHeader = errors.New("invalid Origin header")

// NotAllowedError is returned for a well-formed origin outside the allow-set.
type NotAllowedError struct {
	Origin string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("origin '%s' is not allowed; use --allow-origin to add it", e.Origin)
}

// Policy evaluates the Origin header of inbound requests. It is built once
// and safe for concurrent use because nothing mutates it afterwards.
type Policy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewPolicy builds a Policy from the effective allow-set of cfg.
func NewPolicy(cfg *config.Config) *Policy {
	origins := cfg.CORS.AllowedOrigins()
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Policy{
		allowAll: cfg.CORS.AllowAll,
		allowed:  allowed,
	}
}

// Evaluate returns the origin to echo back in CORS headers.
//
// An absent Origin header yields "" and no error: the caller is not a
// browser and the wildcard applies. Matching is exact; there is no
// subdomain, wildcard or scheme normalization.
func (p *Policy) Evaluate(h http.Header) (string, error) {
	vals, ok := h[headerOrigin]
	if !ok || len(vals) == 0 {
		return "", nil
	}

	origin := vals[0]
	if !isVisibleText(origin) {
		return "", ErrInvalidHeader
	}

	if !p.Allows(origin) {
		return "", &NotAllowedError{Origin: origin}
	}
	return origin, nil
}

// Allows reports whether origin passes the policy.
func (p *Policy) Allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}

// isVisibleText reports whether v is a valid field value made only of
// visible ASCII, space and horizontal tab.
func isVisibleText(v string) bool {
	if !httpguts.ValidHeaderFieldValue(v) {
		return false
	}
	for i := 0; i < len(v); i++ {
		if b := v[i]; b >= 0x7f || (b < 0x20 && b != '\t') {
			return false
		}
	}
	return true
}
