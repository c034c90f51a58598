package surge

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingResult is an immutable price snapshot for one zone.
type PricingResult struct {
	ZoneID      uuid.UUID       `json:"zone_id"`
	BaseCents   int64           `json:"base_cents"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	SurgeCents  int64           `json:"surge_cents"`
	SurgeActive bool            `json:"surge_active"`
	Demand      int64           `json:"demand"`
	Fallback    bool            `json:"fallback"`
	ComputedAt  time.Time       `json:"computed_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Signal is the demand reading behind a multiplier.
type Signal struct {
	Demand    int64
	Available bool
}

// State is the cached surge state of one zone.
type State struct {
	ZoneID        uuid.UUID
	Multiplier    decimal.Decimal
	Signal        Signal
	ComputedAt    time.Time
	TTL           time.Duration
	LastBaseCents int64
}

func (s State) expiresAt() time.Time {
	return s.ComputedAt.Add(s.TTL)
}

func (s State) fresh(now time.Time) bool {
	return now.Before(s.expiresAt())
}
