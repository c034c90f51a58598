package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

// Session is the working state of one checkout. It is only mutated by the
// Orchestrator's transitions; pointer fields are replaced, never edited in
// place, so copies handed out by Snapshot stay stable.
type Session struct {
	ID                   uuid.UUID                 `json:"id"`
	CustomerID           uuid.UUID                 `json:"customer_id"`
	CartID               uuid.UUID                 `json:"cart_id"`
	Step                 enums.CheckoutStep        `json:"step"`
	Fulfillment          enums.FulfillmentMethod   `json:"fulfillment,omitempty"`
	PickupLocation       *pickup.Location          `json:"pickup_location,omitempty"`
	Address              *addressbook.SavedAddress `json:"address,omitempty"`
	Resolution           *zones.Resolution         `json:"resolution,omitempty"`
	Zone                 *zones.DeliveryZone       `json:"zone,omitempty"`
	Pricing              *surge.PricingResult      `json:"pricing,omitempty"`
	AcknowledgedFeeCents *int64                    `json:"acknowledged_fee_cents,omitempty"`
	PaymentMethod        *paymentmethods.Method    `json:"payment_method,omitempty"`
	Instructions         string                    `json:"instructions,omitempty"`
	Items                []cart.LineItem           `json:"items"`
	Processing           bool                      `json:"processing"`
	OrderReference       string                    `json:"order_reference,omitempty"`
	LastError            *StepError                `json:"last_error,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

func (s Session) clone() Session {
	out := s
	out.Items = append([]cart.LineItem(nil), s.Items...)
	return out
}

func (s Session) delivery() bool {
	return s.Fulfillment == enums.FulfillmentDelivery
}

func (s Session) pickup() bool {
	return s.Fulfillment == enums.FulfillmentPickup
}

// StepError is the error surfaced inline at the step that produced it.
type StepError struct {
	Step    enums.CheckoutStep `json:"step"`
	Code    pkgerrors.Code     `json:"code"`
	Message string             `json:"message"`
	Details any                `json:"details,omitempty"`
}

func newStepError(step enums.CheckoutStep, err error) *StepError {
	if typed := pkgerrors.As(err); typed != nil {
		return &StepError{Step: step, Code: typed.Code(), Message: typed.Message(), Details: typed.Details()}
	}
	return &StepError{Step: step, Code: pkgerrors.CodeInternal, Message: err.Error()}
}

// Snapshot is a consistent read of a session with its derived totals.
type Snapshot struct {
	Session
	Totals Totals `json:"totals"`
}

// Receipt is returned by a successful submission.
type Receipt struct {
	SessionID      uuid.UUID `json:"session_id"`
	OrderReference string    `json:"order_reference"`
	Totals         Totals    `json:"totals"`
}
