package checkout

import (
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

// nextStep is the forward transition table. Pickup orders skip shipping.
func nextStep(current enums.CheckoutStep, s Session) (enums.CheckoutStep, bool) {
	switch current {
	case enums.CheckoutStepDeliveryMethod:
		if s.pickup() {
			return enums.CheckoutStepPayment, true
		}
		return enums.CheckoutStepShipping, true
	case enums.CheckoutStepShipping:
		return enums.CheckoutStepPayment, true
	case enums.CheckoutStepPayment:
		return enums.CheckoutStepReview, true
	case enums.CheckoutStepReview:
		return enums.CheckoutStepConfirmation, true
	default:
		return current, false
	}
}

// prevStep is the backward transition table. Confirmation and the first
// step have no predecessor.
func prevStep(current enums.CheckoutStep, s Session) (enums.CheckoutStep, bool) {
	switch current {
	case enums.CheckoutStepShipping:
		return enums.CheckoutStepDeliveryMethod, true
	case enums.CheckoutStepPayment:
		if s.pickup() {
			return enums.CheckoutStepDeliveryMethod, true
		}
		return enums.CheckoutStepShipping, true
	case enums.CheckoutStepReview:
		return enums.CheckoutStepPayment, true
	default:
		return current, false
	}
}

// visible reports whether a step may be rendered for the session.
func visible(step enums.CheckoutStep, s Session) bool {
	return !(step == enums.CheckoutStepShipping && s.pickup())
}

// guard checks the selections required to leave step.
func guard(step enums.CheckoutStep, s Session) error {
	switch step {
	case enums.CheckoutStepDeliveryMethod:
		return guardDeliveryMethod(s)
	case enums.CheckoutStepShipping:
		if s.pickup() {
			return nil
		}
		return guardShipping(s)
	case enums.CheckoutStepPayment:
		if s.PaymentMethod == nil {
			return validation("select a payment method")
		}
	}
	return nil
}

// blockedBefore returns the first step before target whose guard fails,
// with its error. It returns target and nil when all of them pass.
func blockedBefore(target enums.CheckoutStep, s Session) (enums.CheckoutStep, error) {
	for step := enums.CheckoutStepDeliveryMethod; step < target; step++ {
		if err := guard(step, s); err != nil {
			return step, err
		}
	}
	return target, nil
}

// renderStep is the step to display for s.
func renderStep(s Session) enums.CheckoutStep {
	target := s.Step
	for !visible(target, s) {
		next, ok := nextStep(target, s)
		if !ok {
			break
		}
		target = next
	}
	if target == s.Step {
		return target
	}
	step, _ := blockedBefore(target, s)
	return step
}

// guardAll re-validates every step before submission.
func guardAll(s Session) error {
	if len(s.Items) == 0 {
		return validation("cart is empty")
	}
	_, err := blockedBefore(enums.CheckoutStepReview, s)
	return err
}

func guardDeliveryMethod(s Session) error {
	switch s.Fulfillment {
	case enums.FulfillmentDelivery:
		return nil
	case enums.FulfillmentPickup:
		if s.PickupLocation == nil {
			return validation("select a pickup location")
		}
		return nil
	default:
		return validation("choose delivery or pickup")
	}
}

func guardShipping(s Session) error {
	if s.Address == nil {
		return validation("add a delivery address")
	}
	if s.Resolution == nil {
		return validation("delivery coverage has not been checked for this address")
	}
	if s.Zone == nil {
		if err := s.Resolution.Err(); err != nil {
			return err
		}
		return validation("select a delivery zone")
	}
	if _, ok := s.Resolution.Option(s.Zone.ID); !ok {
		return validation("selected zone does not cover this address")
	}
	if err := zones.CheckEligibility(*s.Zone, cart.Subtotal(s.Items)); err != nil {
		return err
	}
	fee := DeliveryFee(s)
	if s.AcknowledgedFeeCents == nil || *s.AcknowledgedFeeCents != fee {
		return pkgerrors.New(pkgerrors.CodeValidation, "acknowledge the delivery fee of "+money.Format(fee)).
			WithDetails(map[string]any{"delivery_fee_cents": fee})
	}
	return nil
}

func validation(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}
