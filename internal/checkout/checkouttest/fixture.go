package checkouttest

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// Fixture wires a real zone resolver and surge engine to in-memory
// collaborators holding the reference cart.
type Fixture struct {
	CustomerID      uuid.UUID
	CartID          uuid.UUID
	PickupID        uuid.UUID
	PaymentMethodID uuid.UUID

	Clock     *Clock
	Cart      *Cart
	Addresses *AddressBook
	Demand    *Demand
	Submitter *Submitter
	Engine    *surge.Engine
	Resolver  *zones.Resolver
	Deps      checkout.Dependencies
}

// NewFixture builds the fixture. The demand signal starts at zero, which
// prices every zone at its base fee.
func NewFixture() (*Fixture, error) {
	f := &Fixture{
		CustomerID:      uuid.New(),
		CartID:          uuid.New(),
		PickupID:        uuid.MustParse("b1d5e000-0000-4000-8000-000000000001"),
		PaymentMethodID: uuid.MustParse("9a9e0000-0000-4000-8000-000000000001"),
		Clock:           NewClock(),
		Cart:            NewCart(),
		Addresses:       NewAddressBook(),
		Demand:          &Demand{},
		Submitter:       &Submitter{},
	}
	f.Cart.Set(f.CartID, Headphones, Case)

	resolver, err := zones.NewResolver(Zones(), nil)
	if err != nil {
		return nil, err
	}
	engine, err := surge.NewEngine(surge.EngineParams{
		Source:   f.Demand,
		Settings: surge.DefaultSettings(),
		Clock:    f.Clock.Now,
	})
	if err != nil {
		return nil, err
	}
	f.Resolver, f.Engine = resolver, engine

	f.Deps = checkout.Dependencies{
		Cart:      f.Cart,
		Zones:     resolver,
		Pricing:   engine,
		Addresses: f.Addresses,
		Pickup: Pickup{{
			ID:         f.PickupID,
			Name:       "Mission Street Store",
			Line1:      "2100 Mission St",
			City:       "San Francisco",
			State:      "CA",
			PostalCode: "94110",
			Country:    "US",
		}},
		Payments: PaymentMethods{{
			ID:         f.PaymentMethodID,
			CustomerID: f.CustomerID,
			Type:       enums.PaymentMethodTypeCard,
			Brand:      "Visa",
			Last4:      "4242",
			IsDefault:  true,
		}},
		Orders: f.Submitter,
		Clock:  f.Clock.Now,
	}
	return f, nil
}

// Start opens a session on the fixture cart.
func (f *Fixture) Start(ctx context.Context, opts checkout.Options) (*checkout.Orchestrator, error) {
	return checkout.New(ctx, f.Deps, opts, checkout.CreateInput{CustomerID: f.CustomerID, CartID: f.CartID})
}

// PaymentMethod returns the fixture's saved card.
func (f *Fixture) PaymentMethod() paymentmethods.Method {
	return f.Deps.Payments.(PaymentMethods)[0]
}

// PickupLocation returns the fixture's pickup point.
func (f *Fixture) PickupLocation() pickup.Location {
	return f.Deps.Pickup.(Pickup)[0]
}
