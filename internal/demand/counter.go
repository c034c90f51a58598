package demand

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

const counterScope = "demand"

// Counter tracks delivery dispatches per zone in a fixed Redis window. The
// window starts with the first dispatch and the key expires after it, so the
// count decays to zero without a sweeper.
type Counter struct {
	store  redis.CounterStore
	window time.Duration
}

// NewCounter builds a counter over store with the given window.
func NewCounter(store redis.CounterStore, window time.Duration) (*Counter, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("demand window must be positive")
	}
	return &Counter{store: store, window: window}, nil
}

// Record counts one dispatch in zoneID and returns the running total.
func (c *Counter) Record(ctx context.Context, zoneID uuid.UUID) (int64, error) {
	if zoneID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "zone id is required")
	}
	count, err := c.store.IncrWithTTL(ctx, c.key(zoneID), c.window)
	if err != nil {
		return count, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record dispatch")
	}
	return count, nil
}

// Signal reports dispatches in the current window. It satisfies
// surge.DemandSource.
func (c *Counter) Signal(ctx context.Context, zoneID uuid.UUID) (int64, error) {
	raw, err := c.store.Get(ctx, c.key(zoneID))
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read demand counter: %w", err)
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse demand counter %q: %w", raw, err)
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

func (c *Counter) key(zoneID uuid.UUID) string {
	return c.store.CounterKey(counterScope, zoneID.String())
}
