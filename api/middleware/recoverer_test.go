package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

func TestRecovererWritesInternalError(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	r := chi.NewRouter()
	r.Use(Recoverer(logg))
	r.Get("/api/v1/zones/{zoneId}/price", func(http.ResponseWriter, *http.Request) {
		panic("nil zone")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/zones/z1/price", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var env types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
	if strings.Contains(env.Error.Message, "nil zone") {
		t.Fatalf("panic value leaked to the client: %q", env.Error.Message)
	}
	logs := buf.String()
	if !strings.Contains(logs, "panic.recovered") || !strings.Contains(logs, `"route":"/api/v1/zones/{zoneId}/price"`) {
		t.Fatalf("expected recovered panic logged with its route, got %s", logs)
	}
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
