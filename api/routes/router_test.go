package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/checkout/checkouttest"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080", CORSOrigins: []string{"https://shop.example.com"}},
		RateLimit: config.RateLimitConfig{
			SuggestWindow:        time.Minute,
			SuggestIPLimit:       60,
			SessionWindow:        time.Minute,
			SessionIPLimit:       30,
			SessionCustomerLimit: 10,
		},
	}
}

func newTestRouter(t *testing.T) (*checkouttest.Fixture, http.Handler) {
	t.Helper()
	f, err := checkouttest.NewFixture()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	reg := prometheus.NewRegistry()
	f.Deps.Metrics = metrics.NewCheckoutMetrics(reg)
	mgr, err := checkout.NewManager(f.Deps, checkout.Options{}, time.Hour)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	router := NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		nil,
		reg,
		f.Resolver,
		f.Engine,
		nil,
		f.Deps.Pickup,
		nil,
		nil,
		mgr,
		nil,
	)
	return f, router
}

func TestHealthRoutes(t *testing.T) {
	_, router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	f, router := newTestRouter(t)

	body := `{"customer_id":"` + f.CustomerID.String() + `","cart_id":"` + f.CartID.String() + `"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(body)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "checkout_sessions_active 1") {
		t.Fatalf("expected active session gauge, got %s", resp.Body.String())
	}
}

func TestZoneRoutes(t *testing.T) {
	_, router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/zones/resolve?postal_code=94401&order_cents=6000", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), checkouttest.PeninsulaSaverID.String()) {
		t.Fatalf("expected peninsula saver in resolution, got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/zones/"+checkouttest.PeninsulaSaverID.String()+"/price", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutSessionRoutes(t *testing.T) {
	_, router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/"+uuid.NewString()+"/view", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/pickup-locations", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Mission Street Store") {
		t.Fatalf("expected pickup locations, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestMissingServicesReportInternalError(t *testing.T) {
	_, router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-1234ABCD", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without an order service got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkout/sessions", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
