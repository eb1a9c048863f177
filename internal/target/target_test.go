package target

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{
			name: "full URL in path",
			path: "/https://api.example.com/users",
			want: "https://api.example.com/users",
		},
		{
			name: "percent-encoded URL",
			path: "/https%3A%2F%2Fapi.example.com%2Fusers",
			want: "https://api.example.com/users",
		},
		{
			name: "lowercase escapes",
			path: "/https%3a%2f%2fapi.example.com%2fusers",
			want: "https://api.example.com/users",
		},
		{
			name:     "bare domain with query",
			path:     "/example.com/path",
			rawQuery: "q=1",
			want:     "https://example.com/path?q=1",
		},
		{
			name: "plain http kept",
			path: "/http://127.0.0.1:8080/x",
			want: "http://127.0.0.1:8080/x",
		},
		{
			name: "scheme without dot",
			path: "/http://localhost/x",
			want: "http://localhost/x",
		},
		{
			name:     "query is not decoded",
			path:     "/https://api.example.com/search",
			rawQuery: "q=a%20b&x=%zz",
			want:     "https://api.example.com/search?q=a%20b&x=%zz",
		},
		{
			name: "malformed escape passes through",
			path: "/example.com/100%zz",
			want: "https://example.com/100%zz",
		},
		{
			name: "only one leading slash is stripped",
			path: "//example.com",
			want: "https:///example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Resolve(tt.path, tt.rawQuery)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !ok {
				t.Fatal("Resolve() ok = false, want true")
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_NoTarget(t *testing.T) {
	for _, path := range []string{"", "/"} {
		got, ok, err := Resolve(path, "")
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", path, err)
		}
		if ok {
			t.Errorf("Resolve(%q) ok = true, want false", path)
		}
		if got != "" {
			t.Errorf("Resolve(%q) = %q, want empty", path, got)
		}
	}
}

func TestResolve_Malformed(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"no dot", "/localhost"},
		{"plain word", "/healthz"},
		{"space in domain", "/foo%20bar.com"},
		{"other scheme without dot", "/ftp:host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Resolve(tt.path, "")
			if !ok {
				t.Error("Resolve() ok = false, want true for a non-empty path")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Resolve() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	u, err := Parse("https://api.example.com:8443/users?id=1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if u.Scheme != "https" {
		t.Errorf("Scheme = %q, want https", u.Scheme)
	}
	if u.Host != "api.example.com:8443" {
		t.Errorf("Host = %q, want api.example.com:8443", u.Host)
	}
	if u.Path != "/users" {
		t.Errorf("Path = %q, want /users", u.Path)
	}
	if u.RawQuery != "id=1" {
		t.Errorf("RawQuery = %q, want id=1", u.RawQuery)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantScheme string
	}{
		{name: "space in host", raw: "https://exa mple.com/x"},
		{name: "unterminated IPv6 host", raw: "http://[::1"},
		{name: "missing host", raw: "https://"},
		{name: "ftp scheme", raw: "ftp://example.com/file", wantScheme: "ftp"},
		{name: "ws scheme", raw: "ws://example.com/socket", wantScheme: "ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if tt.wantScheme == "" {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("Parse() error = %v, want ErrMalformed", err)
				}
				return
			}
			var se *UnsupportedSchemeError
			if !errors.As(err, &se) {
				t.Fatalf("Parse() error = %v, want *UnsupportedSchemeError", err)
			}
			if se.Scheme != tt.wantScheme {
				t.Errorf("Scheme = %q, want %q", se.Scheme, tt.wantScheme)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"%41", "A"},
		{"a%2Fb", "a/b"},
		{"a%2fb", "a/b"},
		{"%C3%A9", "é"},
		{"%zz", "%zz"},
		{"abc%4", "abc%4"},
		{"%", "%"},
		{"%%41", "%%41"},
		{"%4g1", "%4g1"},
		{"100%", "100%"},
		{"%20%2", " %2"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Decode(tt.in); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
