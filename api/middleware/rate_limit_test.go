package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	if f.counts[key] == 1 {
		f.ttls[key] = ttl
	}
	return f.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	h := RateLimit(NewRateLimitPolicy("suggest", time.Minute, 3, 0), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/addresses/suggest?q=500", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i+1, resp.Code)
		}
	}
	if ttl := store.ttls["sf:rl:ip:suggest:10.0.0.1"]; ttl != time.Minute {
		t.Fatalf("expected window to be set on the ip key, got %s", ttl)
	}
}

func TestRateLimitBlocksByIP(t *testing.T) {
	store := newFakeRateStore()
	h := RateLimit(NewRateLimitPolicy("suggest", time.Minute, 2, 0), store, nil)(okHandler())

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/addresses/suggest?q=500", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", last)
	}
	if store.counts["sf:rl:ip:suggest:203.0.113.9"] != 3 {
		t.Fatalf("expected forwarded ip to be counted, got %+v", store.counts)
	}
}

func TestRateLimitBlocksByCustomer(t *testing.T) {
	store := newFakeRateStore()
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		seen = buf.String()
		w.WriteHeader(http.StatusCreated)
	})
	h := RateLimit(NewRateLimitPolicy("checkout_session", time.Minute, 100, 1), store, nil)(next)

	body := `{"customer_id":"C1","cart_id":"cart-1"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if seen != body {
		t.Fatalf("expected body to be restored for the handler, got %q", seen)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(body))
	second.RemoteAddr = "10.0.0.2:1234"
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, second)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if store.counts["sf:rl:customer:checkout_session:c1"] != 2 {
		t.Fatalf("expected customer key to be lower-cased, got %+v", store.counts)
	}
}

func TestRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	h := RateLimit(NewRateLimitPolicy("suggest", time.Minute, 1, 0), store, nil)(okHandler())

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/addresses/suggest", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	h := RateLimit(NewRateLimitPolicy("off", 0, 1, 1), store, nil)(okHandler())
	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy should not touch the store")
	}
}
