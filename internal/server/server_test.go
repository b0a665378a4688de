package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/spaceship_rental/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		HTTPBind:          "127.0.0.1",
		HTTPPort:          0,
		RequestTimeout:    5 * time.Second,
		MaxBodyMB:         1,
		MaxContracts:      1000,
		DBBackend:         config.DatabaseSQLite,
		DBDSN:             ":memory:",
		RunsRetention:     time.Hour,
		RunsPruneSchedule: "@hourly",
		EventBus:          config.EventBusNone,
	}
}

func TestServer_OptimizeAndRuns(t *testing.T) {
	srv, err := New(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	body := `[{"name": "a", "start": 0, "duration": 5, "price": 10}, {"name": "b", "start": 5, "duration": 1, "price": 3}]`
	req := httptest.NewRequest(http.MethodPost, "/spaceship/optimize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"income":13,"path":["a","b"]}` {
		t.Fatalf("unexpected body %s", got)
	}
	if rr.Header().Get("X-Run-ID") == "" {
		t.Fatal("expected X-Run-ID with sqlite run history")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers not applied")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"income":13`) {
		t.Fatalf("unexpected runs response %d %s", rr.Code, rr.Body.String())
	}
}

func TestServer_WithoutDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.DBBackend = config.DatabaseNone

	srv, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	req := httptest.NewRequest(http.MethodPost, "/spaceship/optimize", strings.NewReader(`[]`))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Run-ID") != "" {
		t.Fatal("unexpected X-Run-ID without run history")
	}

	req = httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestServer_MetricsRouting(t *testing.T) {
	cfg := testConfig()
	cfg.DBBackend = config.DatabaseNone

	srv, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	if srv.MetricsServer() != nil {
		t.Fatal("expected no metrics server without a metrics bind")
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics on API router, got %d", rr.Code)
	}

	cfg.MetricsBind = "127.0.0.1:0"
	split, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer split.Close()
	if split.MetricsServer() == nil {
		t.Fatal("expected a dedicated metrics server")
	}
}

func TestServer_InvalidPruneSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RunsPruneSchedule = "not a schedule"

	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid prune schedule")
	}
}
