package enums

import (
	"encoding/json"
	"fmt"
)

// CheckoutStep is a position in the checkout flow. The numeric value is the
// step index shown to the buyer.
type CheckoutStep int

const (
	CheckoutStepDeliveryMethod CheckoutStep = iota
	CheckoutStepShipping
	CheckoutStepPayment
	CheckoutStepReview
	CheckoutStepConfirmation
)

var checkoutStepNames = []string{
	"delivery_method",
	"shipping",
	"payment",
	"review",
	"confirmation",
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return checkoutStepNames[s]
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	return s >= CheckoutStepDeliveryMethod && s <= CheckoutStepConfirmation
}

// MarshalJSON encodes the step by name.
func (s CheckoutStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a step name.
func (s *CheckoutStep) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseCheckoutStep(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseCheckoutStep converts a step name into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for i, name := range checkoutStepNames {
		if name == value {
			return CheckoutStep(i), nil
		}
	}
	return 0, fmt.Errorf("invalid checkout step %q", value)
}
