package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-checkout/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	expectStatus(t, resp, http.StatusOK)
	if resp.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(resp.Body.String(), `"redis":"up"`) {
		t.Fatalf("expected redis check, got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{err: errors.New("connection refused")}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	expectStatus(t, resp, http.StatusServiceUnavailable)
	if errEnv := decodeError(t, resp); errEnv.Error.Code != "DEPENDENCY_ERROR" {
		t.Fatalf("unexpected error code %s", errEnv.Error.Code)
	}
}
