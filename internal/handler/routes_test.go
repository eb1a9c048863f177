package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"holy-cors/internal/config"
	"holy-cors/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	m := metrics.New()
	e := newTestServer(t, cfg, m)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET / welcome", http.MethodGet, "/", http.StatusOK},
		{"POST / welcome", http.MethodPost, "/", http.StatusOK},
		{"GET target", http.MethodGet, "/" + upstream.URL + "/items", http.StatusOK},
		{"DELETE target", http.MethodDelete, "/" + upstream.URL + "/items/1", http.StatusOK},
		{"GET not a URL", http.MethodGet, "/unknown", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	e := newTestServer(t, cfg, metrics.New())

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Without the metrics route the path is treated as a target and rejected.
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics exposed while disabled")
	}
}
