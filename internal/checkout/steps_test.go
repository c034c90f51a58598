package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

var testZone = zones.DeliveryZone{
	ID:            uuid.MustParse("7d0c1a52-0000-4000-8000-000000000001"),
	Name:          "Downtown Express",
	BaseFeeCents:  999,
	MinOrderCents: 2500,
	Tier:          enums.ZoneTierPremium,
}

func testItems() []cart.LineItem {
	return []cart.LineItem{
		{SKU: "HP-ANC-700", UnitPriceCents: 19999, Quantity: 1},
		{SKU: "HP-CASE-01", UnitPriceCents: 2998, Quantity: 1},
	}
}

func deliverySession() Session {
	zone := testZone
	res := zones.Resolution{
		PostalCode:  "94105",
		Status:      zones.StatusOK,
		Serviceable: true,
		Matched:     []zones.ZoneOption{{Zone: zone, Eligible: true}},
	}
	fee := int64(999)
	return Session{
		Step:                 enums.CheckoutStepShipping,
		Fulfillment:          enums.FulfillmentDelivery,
		Address:              &addressbook.SavedAddress{Address: types.Address{Line1: "500 Howard St", City: "San Francisco", State: "CA", PostalCode: "94105"}},
		Resolution:           &res,
		Zone:                 &zone,
		AcknowledgedFeeCents: &fee,
		Items:                testItems(),
	}
}

func TestNextStepSkipsShippingForPickup(t *testing.T) {
	pickupSession := Session{Fulfillment: enums.FulfillmentPickup}
	deliverySession := Session{Fulfillment: enums.FulfillmentDelivery}

	cases := []struct {
		name    string
		from    enums.CheckoutStep
		session Session
		want    enums.CheckoutStep
		ok      bool
	}{
		{"pickup skips shipping", enums.CheckoutStepDeliveryMethod, pickupSession, enums.CheckoutStepPayment, true},
		{"delivery visits shipping", enums.CheckoutStepDeliveryMethod, deliverySession, enums.CheckoutStepShipping, true},
		{"shipping to payment", enums.CheckoutStepShipping, deliverySession, enums.CheckoutStepPayment, true},
		{"payment to review", enums.CheckoutStepPayment, pickupSession, enums.CheckoutStepReview, true},
		{"review to confirmation", enums.CheckoutStepReview, deliverySession, enums.CheckoutStepConfirmation, true},
		{"confirmation is terminal", enums.CheckoutStepConfirmation, deliverySession, enums.CheckoutStepConfirmation, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := nextStep(tc.from, tc.session)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("nextStep(%s) = %s, %v; want %s, %v", tc.from, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestPrevStep(t *testing.T) {
	pickupSession := Session{Fulfillment: enums.FulfillmentPickup}
	deliverySession := Session{Fulfillment: enums.FulfillmentDelivery}

	if got, ok := prevStep(enums.CheckoutStepPayment, pickupSession); !ok || got != enums.CheckoutStepDeliveryMethod {
		t.Fatalf("pickup payment should go back to delivery method, got %s", got)
	}
	if got, ok := prevStep(enums.CheckoutStepPayment, deliverySession); !ok || got != enums.CheckoutStepShipping {
		t.Fatalf("delivery payment should go back to shipping, got %s", got)
	}
	if _, ok := prevStep(enums.CheckoutStepDeliveryMethod, deliverySession); ok {
		t.Fatal("first step has no predecessor")
	}
	if _, ok := prevStep(enums.CheckoutStepConfirmation, deliverySession); ok {
		t.Fatal("confirmation has no predecessor")
	}
}

func TestVisible(t *testing.T) {
	if visible(enums.CheckoutStepShipping, Session{Fulfillment: enums.FulfillmentPickup}) {
		t.Fatal("shipping must be hidden for pickup")
	}
	if !visible(enums.CheckoutStepShipping, Session{Fulfillment: enums.FulfillmentDelivery}) {
		t.Fatal("shipping must be shown for delivery")
	}
}

func TestGuardDeliveryMethod(t *testing.T) {
	if err := guard(enums.CheckoutStepDeliveryMethod, Session{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without a method, got %v", err)
	}
	if err := guard(enums.CheckoutStepDeliveryMethod, Session{Fulfillment: enums.FulfillmentPickup}); err == nil {
		t.Fatal("pickup without a location must not pass")
	}
	s := Session{Fulfillment: enums.FulfillmentPickup, PickupLocation: &pickup.Location{ID: uuid.New()}}
	if err := guard(enums.CheckoutStepDeliveryMethod, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGuardShipping(t *testing.T) {
	if err := guard(enums.CheckoutStepShipping, deliverySession()); err != nil {
		t.Fatalf("complete shipping step should pass: %v", err)
	}

	t.Run("missing address", func(t *testing.T) {
		s := deliverySession()
		s.Address = nil
		if err := guard(enums.CheckoutStepShipping, s); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("not serviceable surfaces resolution error", func(t *testing.T) {
		s := deliverySession()
		s.Zone = nil
		s.Resolution = &zones.Resolution{PostalCode: "10001", Status: zones.StatusNotServiceable, Message: "We don't deliver to this postal code yet"}
		if err := guard(enums.CheckoutStepShipping, s); !pkgerrors.Is(err, pkgerrors.CodeNotServiceable) {
			t.Fatalf("expected not serviceable, got %v", err)
		}
	})

	t.Run("zone below minimum", func(t *testing.T) {
		s := deliverySession()
		s.Items = []cart.LineItem{{UnitPriceCents: 2000, Quantity: 1}}
		if err := guard(enums.CheckoutStepShipping, s); !pkgerrors.Is(err, pkgerrors.CodeIneligibleOrder) {
			t.Fatalf("expected ineligible order, got %v", err)
		}
	})

	t.Run("zone outside resolution", func(t *testing.T) {
		s := deliverySession()
		other := testZone
		other.ID = uuid.New()
		s.Zone = &other
		if err := guard(enums.CheckoutStepShipping, s); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("stale fee acknowledgement", func(t *testing.T) {
		s := deliverySession()
		s.Pricing = &surge.PricingResult{ZoneID: testZone.ID, BaseCents: 999, Multiplier: decimal.RequireFromString("1.25"), SurgeCents: 1249}
		err := guard(enums.CheckoutStepShipping, s)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
		details, _ := typed.Details().(map[string]any)
		if details["delivery_fee_cents"] != int64(1249) {
			t.Fatalf("expected current fee in details, got %v", typed.Details())
		}
	})

	t.Run("pickup ignores shipping", func(t *testing.T) {
		if err := guard(enums.CheckoutStepShipping, Session{Fulfillment: enums.FulfillmentPickup}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestGuardAllRejectsEmptyCart(t *testing.T) {
	s := deliverySession()
	s.Items = nil
	if err := guardAll(s); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGuardAllRequiresPayment(t *testing.T) {
	if err := guardAll(deliverySession()); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected missing payment to fail, got %v", err)
	}
}

func TestBlockedBeforeFindsEarliestIncompleteStep(t *testing.T) {
	s := deliverySession()
	s.Step = enums.CheckoutStepPayment
	s.Address = nil
	s.Zone = nil
	step, err := blockedBefore(enums.CheckoutStepReview, s)
	if step != enums.CheckoutStepShipping || !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected shipping to block, got %s (%v)", step, err)
	}

	s = Session{Fulfillment: enums.FulfillmentPickup}
	step, err = blockedBefore(enums.CheckoutStepPayment, s)
	if step != enums.CheckoutStepDeliveryMethod || err == nil {
		t.Fatalf("expected delivery method to block without a pickup location, got %s (%v)", step, err)
	}

	s.PickupLocation = &pickup.Location{ID: uuid.New()}
	if step, err = blockedBefore(enums.CheckoutStepPayment, s); step != enums.CheckoutStepPayment || err != nil {
		t.Fatalf("expected payment to be reachable, got %s (%v)", step, err)
	}
}

func TestRenderStep(t *testing.T) {
	cases := []struct {
		name string
		s    Session
		want enums.CheckoutStep
	}{
		{
			name: "visible step renders as is",
			s:    Session{Step: enums.CheckoutStepShipping, Fulfillment: enums.FulfillmentDelivery},
			want: enums.CheckoutStepShipping,
		},
		{
			name: "shipping under pickup renders payment",
			s: Session{Step: enums.CheckoutStepShipping, Fulfillment: enums.FulfillmentPickup,
				PickupLocation: &pickup.Location{ID: uuid.New()}},
			want: enums.CheckoutStepPayment,
		},
		{
			name: "shipping under pickup without a location renders delivery method",
			s:    Session{Step: enums.CheckoutStepShipping, Fulfillment: enums.FulfillmentPickup},
			want: enums.CheckoutStepDeliveryMethod,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := renderStep(tc.s); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
