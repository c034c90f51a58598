package surge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

const multiplierPlaces = 4

// DemandSource reports the current demand signal for a zone.
type DemandSource interface {
	Signal(ctx context.Context, zoneID uuid.UUID) (int64, error)
}

// DemandSourceFunc adapts a function to DemandSource.
type DemandSourceFunc func(ctx context.Context, zoneID uuid.UUID) (int64, error)

func (f DemandSourceFunc) Signal(ctx context.Context, zoneID uuid.UUID) (int64, error) {
	return f(ctx, zoneID)
}

// Settings tune the engine.
type Settings struct {
	Curve           Curve
	MinMultiplier   decimal.Decimal
	MaxMultiplier   decimal.Decimal
	ActiveThreshold decimal.Decimal
	TTL             time.Duration
}

// DefaultSettings returns the stock curve, a [1.0, 2.5] clamp, a 1.05 badge
// threshold and a 45s TTL.
func DefaultSettings() Settings {
	return Settings{
		Curve:           DefaultCurve(),
		MinMultiplier:   decimal.NewFromInt(1),
		MaxMultiplier:   decimal.RequireFromString("2.5"),
		ActiveThreshold: decimal.RequireFromString("1.05"),
		TTL:             45 * time.Second,
	}
}

// SettingsFromConfig converts the pricing configuration section.
func SettingsFromConfig(cfg config.PricingConfig) (Settings, error) {
	curve, err := ParseCurve(cfg.Curve)
	if err != nil {
		return Settings{}, fmt.Errorf("surge curve: %w", err)
	}
	return Settings{
		Curve:           curve,
		MinMultiplier:   decimal.NewFromFloat(cfg.MinMultiplier),
		MaxMultiplier:   decimal.NewFromFloat(cfg.MaxMultiplier),
		ActiveThreshold: decimal.NewFromFloat(cfg.ActiveThreshold),
		TTL:             cfg.TTL,
	}, nil
}

// EngineParams groups the engine dependencies.
type EngineParams struct {
	Source   DemandSource
	Settings Settings
	Logger   *logger.Logger
	Metrics  *metrics.SurgeMetrics
	Clock    func() time.Time
}

// Engine computes demand-sensitive delivery prices per zone. State is cached
// for the configured TTL and recomputed on the first read after it expires.
type Engine struct {
	source   DemandSource
	settings Settings
	logg     *logger.Logger
	metrics  *metrics.SurgeMetrics
	now      func() time.Time

	mu      sync.Mutex
	states  map[uuid.UUID]State
	subs    map[uuid.UUID]map[uint64]func(PricingResult)
	nextSub uint64
}

// NewEngine validates the settings and builds an engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "demand source required")
	}
	s := params.Settings
	if !s.MinMultiplier.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "min multiplier must be positive")
	}
	if s.MaxMultiplier.LessThan(s.MinMultiplier) {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "max multiplier must not be below min multiplier")
	}
	if s.TTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "surge ttl must be positive")
	}
	if len(s.Curve.points) == 0 {
		s.Curve = DefaultCurve()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		source:   params.Source,
		settings: s,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      clock,
		states:   make(map[uuid.UUID]State),
		subs:     make(map[uuid.UUID]map[uint64]func(PricingResult)),
	}, nil
}

// GetPrice returns the surge price for baseCents in zoneID. Within the TTL
// the cached multiplier is reused; a demand source failure degrades to the
// base fee rather than an error.
func (e *Engine) GetPrice(ctx context.Context, zoneID uuid.UUID, baseCents int64) PricingResult {
	e.mu.Lock()
	st, ok := e.states[zoneID]
	if ok && st.fresh(e.now()) {
		st.LastBaseCents = baseCents
		e.states[zoneID] = st
		e.mu.Unlock()
		return e.result(st, baseCents)
	}
	e.mu.Unlock()

	res := e.recompute(ctx, zoneID, baseCents)
	e.notify(zoneID, res)
	return res
}

// Refresh recomputes the multiplier of a zone that has already been priced.
func (e *Engine) Refresh(ctx context.Context, zoneID uuid.UUID) (PricingResult, error) {
	e.mu.Lock()
	st, ok := e.states[zoneID]
	e.mu.Unlock()
	if !ok {
		return PricingResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "zone has not been priced yet").
			WithDetails(map[string]any{"zone_id": zoneID.String()})
	}

	res := e.recompute(ctx, zoneID, st.LastBaseCents)
	e.notify(zoneID, res)
	return res, nil
}

// Subscribe registers fn to receive every recomputed price of zoneID. The
// returned function unsubscribes; calling it more than once is harmless.
func (e *Engine) Subscribe(zoneID uuid.UUID, fn func(PricingResult)) func() {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	e.nextSub++
	id := e.nextSub
	if e.subs[zoneID] == nil {
		e.subs[zoneID] = make(map[uint64]func(PricingResult))
	}
	e.subs[zoneID][id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs[zoneID], id)
			if len(e.subs[zoneID]) == 0 {
				delete(e.subs, zoneID)
			}
		})
	}
}

// Zones lists the zones with live subscribers.
func (e *Engine) Zones() []uuid.UUID {
	e.mu.Lock()
	out := make([]uuid.UUID, 0, len(e.subs))
	for id := range e.subs {
		out = append(out, id)
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// State returns the cached state of a zone.
func (e *Engine) State(zoneID uuid.UUID) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[zoneID]
	return st, ok
}

func (e *Engine) recompute(ctx context.Context, zoneID uuid.UUID, baseCents int64) PricingResult {
	signal := Signal{Available: true}
	demand, err := e.source.Signal(ctx, zoneID)
	if err != nil {
		signal.Available = false
		warnCtx := e.logg.WithFields(ctx, map[string]any{
			"zone_id":    zoneID.String(),
			"error_code": string(pkgerrors.CodePricingUnavailable),
			"error":      err.Error(),
		})
		e.logg.Warn(warnCtx, "demand signal unavailable; pricing at base fee")
	} else {
		signal.Demand = demand
	}

	st := State{
		ZoneID:        zoneID,
		Multiplier:    e.multiplier(signal),
		Signal:        signal,
		ComputedAt:    e.now(),
		TTL:           e.settings.TTL,
		LastBaseCents: baseCents,
	}

	e.mu.Lock()
	e.states[zoneID] = st
	e.mu.Unlock()

	e.metrics.ObserveRecompute(zoneID.String(), st.Multiplier.InexactFloat64(), !signal.Available)
	return e.result(st, baseCents)
}

func (e *Engine) multiplier(signal Signal) decimal.Decimal {
	m := decimal.NewFromInt(1)
	if signal.Available {
		m = e.settings.Curve.Multiplier(signal.Demand)
	}
	return e.clamp(m).Round(multiplierPlaces)
}

func (e *Engine) clamp(m decimal.Decimal) decimal.Decimal {
	if m.LessThan(e.settings.MinMultiplier) {
		return e.settings.MinMultiplier
	}
	if m.GreaterThan(e.settings.MaxMultiplier) {
		return e.settings.MaxMultiplier
	}
	return m
}

func (e *Engine) result(st State, baseCents int64) PricingResult {
	return PricingResult{
		ZoneID:      st.ZoneID,
		BaseCents:   baseCents,
		Multiplier:  st.Multiplier,
		SurgeCents:  money.ApplyRate(baseCents, st.Multiplier),
		SurgeActive: st.Multiplier.GreaterThan(e.settings.ActiveThreshold),
		Demand:      st.Signal.Demand,
		Fallback:    !st.Signal.Available,
		ComputedAt:  st.ComputedAt,
		ExpiresAt:   st.expiresAt(),
	}
}

func (e *Engine) notify(zoneID uuid.UUID, res PricingResult) {
	e.mu.Lock()
	fns := make([]func(PricingResult), 0, len(e.subs[zoneID]))
	for _, fn := range e.subs[zoneID] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(res)
	}
}
