// Package target extracts the destination URL embedded in an inbound request path.
//
// A request for /https://api.example.com/users is forwarded to
// https://api.example.com/users. The embedded URL may be percent-encoded
// (/https%3A%2F%2Fapi.example.com%2Fusers) and the scheme may be omitted for
// bare domains (/api.example.com/users is sent over https).
package target

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformed is returned when the path does not embed a usable URL.
var ErrMalformed = errors.New("invalid target URL")

// UnsupportedSchemeError is returned for a target whose scheme is neither http nor https.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported scheme: %s; only http and https are allowed", e.Scheme)
}

// Resolve extracts the raw target URL from an escaped request path and raw
// query. It returns ok == false when the path is empty after its leading
// slash; callers serve the welcome response in that case. A non-empty path
// that does not look like a URL or a domain yields ErrMalformed.
func Resolve(path, rawQuery string) (raw string, ok bool, err error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", false, nil
	}

	s := Decode(path)
	if rawQuery != "" {
		s += "?" + rawQuery
	}

	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s, true, nil
	case strings.Contains(s, ".") && !strings.Contains(s, " "):
		return "https://" + s, true, nil
	default:
		return "", true, ErrMalformed
	}
}

// Parse validates a raw target URL and restricts it to http and https.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme}
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformed)
	}
	return u, nil
}

// Decode percent-decodes s leniently. A '%' followed by two hex digits
// becomes the byte they encode; any other '%' is kept together with the (at
// most two) characters after it. Decode never fails.
func Decode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '%' {
			b.WriteByte(s[i])
			i++
			continue
		}
		if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 3
			continue
		}
		end := min(i+3, len(s))
		b.WriteString(s[i:end])
		i = end
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
