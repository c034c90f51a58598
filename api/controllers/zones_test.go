package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/internal/checkout/checkouttest"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

type stubDemand struct {
	counts map[uuid.UUID]int64
	err    error
}

func (s *stubDemand) Record(_ context.Context, zoneID uuid.UUID) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.counts == nil {
		s.counts = map[uuid.UUID]int64{}
	}
	s.counts[zoneID]++
	return s.counts[zoneID], nil
}

func newZonesServer(t *testing.T, demand DemandRecorder) (*checkouttest.Fixture, http.Handler) {
	t.Helper()
	f, err := checkouttest.NewFixture()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	r := chi.NewRouter()
	r.Get("/zones/resolve", ResolveZones(f.Resolver, nil))
	r.Get("/zones/{zoneId}/price", ZonePrice(f.Resolver, f.Engine, nil))
	r.Post("/zones/{zoneId}/price/refresh", RefreshZonePrice(f.Engine, nil))
	r.Post("/demand/{zoneId}/dispatches", RecordDispatch(f.Resolver, demand, nil))
	return f, r
}

func TestResolveZones(t *testing.T) {
	_, h := newZonesServer(t, nil)

	resp := call(t, h, http.MethodGet, "/zones/resolve?postal_code=94105&order_cents=22997", nil)
	expectStatus(t, resp, http.StatusOK)
	var env struct {
		Data zones.Resolution `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Status != zones.StatusOK || !env.Data.Serviceable {
		t.Fatalf("unexpected resolution %+v", env.Data)
	}
	if len(env.Data.Matched) != 2 || env.Data.Matched[0].Zone.ID != checkouttest.DowntownExpressID {
		t.Fatalf("expected downtown express first, got %+v", env.Data.Matched)
	}

	resp = call(t, h, http.MethodGet, "/zones/resolve?postal_code=10001&order_cents=22997", nil)
	expectStatus(t, resp, http.StatusOK)
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Status != zones.StatusNotServiceable {
		t.Fatalf("expected not_serviceable got %s", env.Data.Status)
	}

	expectStatus(t, call(t, h, http.MethodGet, "/zones/resolve?postal_code=94105&order_cents=-1", nil), http.StatusBadRequest)
}

func TestZonePriceUsesBaseFeeByDefault(t *testing.T) {
	f, h := newZonesServer(t, nil)
	f.Demand.Set(20, nil)

	resp := call(t, h, http.MethodGet, "/zones/"+checkouttest.DowntownExpressID.String()+"/price", nil)
	expectStatus(t, resp, http.StatusOK)
	var env struct {
		Data surge.PricingResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.BaseCents != 999 || env.Data.SurgeCents != 1249 || !env.Data.SurgeActive {
		t.Fatalf("unexpected price %+v", env.Data)
	}

	resp = call(t, h, http.MethodGet, "/zones/"+checkouttest.DowntownExpressID.String()+"/price?base_cents=1000", nil)
	expectStatus(t, resp, http.StatusOK)
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.SurgeCents != 1250 {
		t.Fatalf("expected 1250 got %d", env.Data.SurgeCents)
	}

	expectStatus(t, call(t, h, http.MethodGet, "/zones/"+uuid.NewString()+"/price", nil), http.StatusNotFound)
}

func TestRefreshZonePriceRequiresPriorPrice(t *testing.T) {
	_, h := newZonesServer(t, nil)
	path := "/zones/" + checkouttest.BayStandardID.String()

	expectStatus(t, call(t, h, http.MethodPost, path+"/price/refresh", nil), http.StatusNotFound)
	expectStatus(t, call(t, h, http.MethodGet, path+"/price", nil), http.StatusOK)
	expectStatus(t, call(t, h, http.MethodPost, path+"/price/refresh", nil), http.StatusOK)
}

func TestRecordDispatch(t *testing.T) {
	demand := &stubDemand{}
	_, h := newZonesServer(t, demand)

	path := "/demand/" + checkouttest.PeninsulaSaverID.String() + "/dispatches"
	expectStatus(t, call(t, h, http.MethodPost, path, nil), http.StatusAccepted)
	resp := call(t, h, http.MethodPost, path, nil)
	expectStatus(t, resp, http.StatusAccepted)
	var env struct {
		Data struct {
			Demand int64 `json:"demand"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Demand != 2 {
		t.Fatalf("expected demand 2 got %d", env.Data.Demand)
	}

	expectStatus(t, call(t, h, http.MethodPost, "/demand/"+uuid.NewString()+"/dispatches", nil), http.StatusNotFound)

	demand.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("redis down"), "record dispatch")
	expectStatus(t, call(t, h, http.MethodPost, path, nil), http.StatusServiceUnavailable)
}
