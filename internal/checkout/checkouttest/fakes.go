// Package checkouttest provides in-memory collaborators for exercising the
// checkout orchestrator without a database, Redis or Google Places.
package checkouttest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/orders"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Cart serves line items per cart id.
type Cart struct {
	mu    sync.Mutex
	items map[uuid.UUID][]cart.LineItem
	Err   error
}

func NewCart() *Cart {
	return &Cart{items: make(map[uuid.UUID][]cart.LineItem)}
}

func (c *Cart) Set(cartID uuid.UUID, items ...cart.LineItem) {
	c.mu.Lock()
	c.items[cartID] = append([]cart.LineItem(nil), items...)
	c.mu.Unlock()
}

func (c *Cart) Items(_ context.Context, cartID uuid.UUID) ([]cart.LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]cart.LineItem(nil), c.items[cartID]...), nil
}

// AddressBook keeps saved addresses in memory.
type AddressBook struct {
	mu      sync.Mutex
	entries map[uuid.UUID]addressbook.SavedAddress
}

func NewAddressBook() *AddressBook {
	return &AddressBook{entries: make(map[uuid.UUID]addressbook.SavedAddress)}
}

func (b *AddressBook) Get(_ context.Context, customerID, id uuid.UUID) (addressbook.SavedAddress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[id]
	if !ok || entry.CustomerID != customerID {
		return addressbook.SavedAddress{}, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return entry, nil
}

func (b *AddressBook) Add(_ context.Context, customerID uuid.UUID, input addressbook.AddInput) (addressbook.SavedAddress, error) {
	if input.Address == nil {
		return addressbook.SavedAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	addr := input.Address.WithDefaults()
	if err := addr.Validate(); err != nil {
		return addressbook.SavedAddress{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	entry := addressbook.SavedAddress{ID: uuid.New(), CustomerID: customerID, Label: input.Label, Address: addr}
	b.mu.Lock()
	b.entries[entry.ID] = entry
	b.mu.Unlock()
	return entry, nil
}

// Pickup is a fixed pickup directory.
type Pickup []pickup.Location

func (p Pickup) List(context.Context) ([]pickup.Location, error) {
	return append([]pickup.Location(nil), p...), nil
}

func (p Pickup) Get(_ context.Context, id uuid.UUID) (pickup.Location, error) {
	for _, loc := range p {
		if loc.ID == id {
			return loc, nil
		}
	}
	return pickup.Location{}, pkgerrors.New(pkgerrors.CodeNotFound, "pickup location not found")
}

// PaymentMethods is a fixed payment method store.
type PaymentMethods []paymentmethods.Method

func (p PaymentMethods) Get(_ context.Context, customerID, id uuid.UUID) (paymentmethods.Method, error) {
	for _, m := range p {
		if m.ID == id && m.CustomerID == customerID {
			return m, nil
		}
	}
	return paymentmethods.Method{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
}

// Demand is a settable demand signal.
type Demand struct {
	mu    sync.Mutex
	value int64
	err   error
}

func (d *Demand) Set(value int64, err error) {
	d.mu.Lock()
	d.value, d.err = value, err
	d.mu.Unlock()
}

func (d *Demand) Signal(context.Context, uuid.UUID) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.err
}

// Submitter records order requests. When Gate is set, Submit blocks until
// the gate is closed or the context ends, after signalling on Started.
type Submitter struct {
	mu       sync.Mutex
	requests []orders.OrderRequest
	err      error
	Gate     chan struct{}
	Started  chan struct{}
}

func (s *Submitter) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Submitter) Submit(ctx context.Context, req orders.OrderRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	err, gate, started := s.err, s.Gate, s.Started
	s.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return orders.Reference(req.SessionID), nil
}

// Requests returns the order requests received so far.
func (s *Submitter) Requests() []orders.OrderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orders.OrderRequest(nil), s.requests...)
}

var (
	DowntownExpressID = uuid.MustParse("7d0c1a52-0000-4000-8000-000000000001")
	BayStandardID     = uuid.MustParse("7d0c1a52-0000-4000-8000-000000000002")
	PeninsulaSaverID  = uuid.MustParse("7d0c1a52-0000-4000-8000-000000000003")
)

// Zones mirrors the seeded delivery zones.
func Zones() zones.StaticCatalog {
	return zones.StaticCatalog{
		{
			ID:                 DowntownExpressID,
			Name:               "Downtown Express",
			PostalPatterns:     []string{"94103", "94105", "94107"},
			BaseFeeCents:       999,
			MinOrderCents:      2500,
			MinDeliveryMinutes: 30,
			MaxDeliveryMinutes: 60,
			Tier:               enums.ZoneTierPremium,
		},
		{
			ID:                 BayStandardID,
			Name:               "Bay Standard",
			PostalPatterns:     []string{"941*"},
			BaseFeeCents:       599,
			MinOrderCents:      3500,
			MinDeliveryMinutes: 90,
			MaxDeliveryMinutes: 180,
			Tier:               enums.ZoneTierStandard,
			Restrictions:       []enums.ZoneRestriction{enums.ZoneRestrictionSizeLimited},
		},
		{
			ID:                 PeninsulaSaverID,
			Name:               "Peninsula Saver",
			PostalPatterns:     []string{"94400-94499"},
			BaseFeeCents:       399,
			MinOrderCents:      5000,
			MinDeliveryMinutes: 240,
			MaxDeliveryMinutes: 480,
			Tier:               enums.ZoneTierEconomy,
		},
	}
}

// Headphones and Case make up the reference cart: $199.99 + $29.98.
var (
	Headphones = cart.LineItem{ID: uuid.MustParse("c0ffee00-0000-4000-8000-000000000001"), SKU: "HP-ANC-700", Name: "Wireless Headphones", Vendor: "Acme Audio", UnitPriceCents: 19999, Quantity: 1}
	Case       = cart.LineItem{ID: uuid.MustParse("c0ffee00-0000-4000-8000-000000000002"), SKU: "HP-CASE-01", Name: "Headphone Case", Vendor: "Acme Audio", UnitPriceCents: 2998, Quantity: 1}
)

// Address builds a minimal street address in postalCode.
func Address(postalCode string) *types.Address {
	return &types.Address{
		Line1:      "500 Howard St",
		City:       "San Francisco",
		State:      "CA",
		PostalCode: postalCode,
		Country:    "US",
	}
}

// OtherCustomerID owns data the fixture customer must not see.
var OtherCustomerID = uuid.MustParse("0dd00000-0000-4000-8000-000000000001")
