// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ProxyRequest represents a validated client request to be forwarded to Target.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Target *url.URL
	Origin string // validated Origin header; "" when the caller sent none
	Header http.Header
	Body   io.ReadCloser
}

// ProxyResponse represents the target response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
