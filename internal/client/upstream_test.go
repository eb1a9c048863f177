package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"holy-cors/internal/config"
	"holy-cors/internal/metrics"
)

func newTestClient(t *testing.T, m *metrics.Metrics) *UpstreamClient {
	t.Helper()
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:          10,
			IdleConnections:         10,
			WebSocketTimeoutSeconds: 5,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewUpstreamClient(cfg, logger, m)
	if err != nil {
		t.Fatalf("NewUpstreamClient() error = %v", err)
	}
	return c
}

func TestUpstreamClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, nil)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/test", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != `{"status":"ok"}` {
		t.Errorf("body = %q, want %q", string(body), `{"status":"ok"}`)
	}
}

func TestUpstreamClient_Do_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/elsewhere" {
			t.Error("redirect should not be followed")
		}
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	c := newTestClient(t, nil)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/start", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "/elsewhere" {
		t.Errorf("Location = %q, want %q", loc, "/elsewhere")
	}
}

func TestUpstreamClient_Do_Error(t *testing.T) {
	m := metrics.New()
	c := newTestClient(t, m)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://127.0.0.1:1/nonexistent", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Do(req); err == nil {
		t.Fatal("Do() expected error for unreachable host, got nil")
	}

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "holy_cors_upstream_failures_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() == 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected holy_cors_upstream_failures_total = 1")
	}
}

func TestUpstreamClient_Do_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate a slow target; the request should be canceled before this completes.
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/slow", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Do(req); err == nil {
		t.Fatal("Do() expected error for canceled context, got nil")
	}
}

func TestUpstreamClient_Handshake(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	c := newTestClient(t, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
	if err := c.Handshake(context.Background(), wsURL); err != nil {
		t.Fatalf("Handshake() error = %v", err)
	}
}

func TestUpstreamClient_Handshake_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no websockets here", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	err := c.Handshake(context.Background(), wsURL)
	if err == nil {
		t.Fatal("Handshake() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %q, want status 403 mentioned", err)
	}
}
