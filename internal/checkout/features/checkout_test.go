package features

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/checkout/checkouttest"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

type checkoutTestContext struct {
	fixture  *checkouttest.Fixture
	session  *checkout.Orchestrator
	snapshot checkout.Snapshot
	receipt  *checkout.Receipt
	err      error

	pending chan submitResult
}

type submitResult struct {
	receipt *checkout.Receipt
	err     error
}

func (c *checkoutTestContext) reset() {
	if c.session != nil {
		c.session.Close()
	}
	c.fixture = nil
	c.session = nil
	c.snapshot = checkout.Snapshot{}
	c.receipt = nil
	c.err = nil
	c.pending = nil
}

// record keeps the outcome of a transition for the Then steps.
func (c *checkoutTestContext) record(snap checkout.Snapshot, err error) error {
	c.snapshot = snap
	c.err = err
	return nil
}

// expectOK fails the step when the transition failed.
func (c *checkoutTestContext) expectOK(snap checkout.Snapshot, err error) error {
	c.record(snap, err)
	if err != nil {
		return fmt.Errorf("unexpected error: %w", err)
	}
	return nil
}

func (c *checkoutTestContext) aCartWithHeadphonesAndCase() error {
	f, err := checkouttest.NewFixture()
	if err != nil {
		return err
	}
	c.fixture = f
	return nil
}

func (c *checkoutTestContext) aCheckoutSessionForTheCart() error {
	o, err := c.fixture.Start(context.Background(), checkout.Options{SubmitTimeout: 5 * time.Second})
	if err != nil {
		return err
	}
	c.session = o
	c.snapshot = o.Snapshot()
	return nil
}

func (c *checkoutTestContext) theOrderServiceIsSlow() error {
	c.fixture.Submitter.Gate = make(chan struct{})
	c.fixture.Submitter.Started = make(chan struct{}, 1)
	return nil
}

func (c *checkoutTestContext) theOrderServiceIsDown() error {
	c.fixture.Submitter.FailWith(errors.New("order service unavailable"))
	return nil
}

func (c *checkoutTestContext) theOrderServiceRecovers() error {
	c.fixture.Submitter.FailWith(nil)
	return nil
}

func (c *checkoutTestContext) iChooseDelivery() error {
	return c.expectOK(c.session.SelectFulfillment(context.Background(), enums.FulfillmentDelivery))
}

func (c *checkoutTestContext) iChoosePickupAt(name string) error {
	loc := c.fixture.PickupLocation()
	if loc.Name != name {
		return fmt.Errorf("no pickup location named %q", name)
	}
	if err := c.expectOK(c.session.SelectFulfillment(context.Background(), enums.FulfillmentPickup)); err != nil {
		return err
	}
	return c.expectOK(c.session.SelectPickupLocation(context.Background(), loc.ID))
}

func (c *checkoutTestContext) iContinue() error {
	return c.record(c.session.Next(context.Background()))
}

func (c *checkoutTestContext) iGoBack() error {
	return c.expectOK(c.session.Back(context.Background()))
}

func (c *checkoutTestContext) iEnterADeliveryAddressIn(postalCode string) error {
	input := checkout.AddressInput{New: &addressbook.AddInput{Label: "Home", Address: checkouttest.Address(postalCode)}}
	return c.expectOK(c.session.SetAddress(context.Background(), input))
}

func (c *checkoutTestContext) iAcceptTheDeliveryFee() error {
	fee := c.session.Totals().DeliveryFeeCents
	return c.expectOK(c.session.AcknowledgeFee(context.Background(), fee))
}

func (c *checkoutTestContext) iPayWithTheSavedCard() error {
	return c.expectOK(c.session.SelectPaymentMethod(context.Background(), c.fixture.PaymentMethodID))
}

func (c *checkoutTestContext) demandRisesTo(dispatches int) error {
	snap := c.session.Snapshot()
	if snap.Zone == nil {
		return errors.New("no zone selected")
	}
	c.fixture.Demand.Set(int64(dispatches), nil)
	c.fixture.Clock.Advance(46 * time.Second)
	if _, err := c.fixture.Engine.Refresh(context.Background(), snap.Zone.ID); err != nil {
		return err
	}
	c.snapshot = c.session.Snapshot()
	return nil
}

func (c *checkoutTestContext) iPlaceTheOrder() error {
	c.receipt, c.err = c.session.Submit(context.Background())
	c.snapshot = c.session.Snapshot()
	return nil
}

func (c *checkoutTestContext) iStartPlacingTheOrder() error {
	c.pending = make(chan submitResult, 1)
	go func() {
		r, err := c.session.Submit(context.Background())
		c.pending <- submitResult{receipt: r, err: err}
	}()
	select {
	case <-c.fixture.Submitter.Started:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("submission never reached the order service")
	}
}

func (c *checkoutTestContext) iPlaceTheOrderAgain() error {
	return c.iPlaceTheOrder()
}

func (c *checkoutTestContext) theSecondAttemptIsIgnored() error {
	if c.err != nil || c.receipt != nil {
		return fmt.Errorf("expected a no-op, got receipt=%v err=%v", c.receipt, c.err)
	}
	if !c.snapshot.Processing {
		return errors.New("expected the first submission to still be processing")
	}
	return nil
}

func (c *checkoutTestContext) theOrderServiceResponds() error {
	close(c.fixture.Submitter.Gate)
	select {
	case res := <-c.pending:
		c.receipt, c.err = res.receipt, res.err
	case <-time.After(2 * time.Second):
		return errors.New("submission did not finish")
	}
	c.snapshot = c.session.Snapshot()
	return c.err
}

func (c *checkoutTestContext) iAmOnTheStep(name string) error {
	step, err := enums.ParseCheckoutStep(name)
	if err != nil {
		return err
	}
	if c.snapshot.Step != step {
		return fmt.Errorf("expected step %s, got %s", step, c.snapshot.Step)
	}
	return nil
}

func (c *checkoutTestContext) theSelectedZoneIs(name string) error {
	if c.snapshot.Zone == nil {
		return errors.New("no zone selected")
	}
	if c.snapshot.Zone.Name != name {
		return fmt.Errorf("expected zone %q, got %q", name, c.snapshot.Zone.Name)
	}
	return nil
}

func (c *checkoutTestContext) noZoneIsSelected() error {
	if c.snapshot.Zone != nil {
		return fmt.Errorf("expected no zone, got %q", c.snapshot.Zone.Name)
	}
	return nil
}

func (c *checkoutTestContext) amountIs(label string, got int64, want string) error {
	if money.Format(got) != want {
		return fmt.Errorf("expected %s %s, got %s", label, want, money.Format(got))
	}
	return nil
}

func (c *checkoutTestContext) theDeliveryFeeIs(want string) error {
	return c.amountIs("delivery fee", c.session.Totals().DeliveryFeeCents, want)
}

func (c *checkoutTestContext) theSubtotalIs(want string) error {
	return c.amountIs("subtotal", c.session.Totals().SubtotalCents, want)
}

func (c *checkoutTestContext) theTaxIs(want string) error {
	return c.amountIs("tax", c.session.Totals().TaxCents, want)
}

func (c *checkoutTestContext) theTotalIs(want string) error {
	return c.amountIs("total", c.session.Totals().TotalCents, want)
}

func (c *checkoutTestContext) anOrderReferenceIsShown() error {
	if c.receipt == nil || c.receipt.OrderReference == "" {
		return errors.New("expected a receipt with an order reference")
	}
	if c.snapshot.OrderReference != c.receipt.OrderReference {
		return fmt.Errorf("session shows %q, receipt %q", c.snapshot.OrderReference, c.receipt.OrderReference)
	}
	return nil
}

func (c *checkoutTestContext) exactlyNOrdersWereSubmitted(n int) error {
	if got := len(c.fixture.Submitter.Requests()); got != n {
		return fmt.Errorf("expected %d submissions, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theStepErrorIs(code string) error {
	if c.snapshot.LastError == nil {
		return errors.New("expected a step error")
	}
	if string(c.snapshot.LastError.Code) != code {
		return fmt.Errorf("expected step error %s, got %s", code, c.snapshot.LastError.Code)
	}
	return nil
}

func (c *checkoutTestContext) theRequestFailsWith(code string) error {
	if c.err == nil {
		return fmt.Errorf("expected %s, got success", code)
	}
	if !pkgerrors.Is(c.err, pkgerrors.Code(code)) {
		return fmt.Errorf("expected %s, got %v", code, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theSavedCardIsStillSelected() error {
	if c.snapshot.PaymentMethod == nil || c.snapshot.PaymentMethod.ID != c.fixture.PaymentMethodID {
		return errors.New("payment method was cleared")
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a cart with Wireless Headphones and a Headphone Case$`, tc.aCartWithHeadphonesAndCase)
	ctx.Step(`^a checkout session for the cart$`, tc.aCheckoutSessionForTheCart)
	ctx.Step(`^the order service is slow$`, tc.theOrderServiceIsSlow)
	ctx.Step(`^the order service is down$`, tc.theOrderServiceIsDown)
	ctx.Step(`^the order service recovers$`, tc.theOrderServiceRecovers)

	// When steps
	ctx.Step(`^I choose delivery$`, tc.iChooseDelivery)
	ctx.Step(`^I choose pickup at "([^"]*)"$`, tc.iChoosePickupAt)
	ctx.Step(`^I continue$`, tc.iContinue)
	ctx.Step(`^I go back$`, tc.iGoBack)
	ctx.Step(`^I enter a delivery address in "([^"]*)"$`, tc.iEnterADeliveryAddressIn)
	ctx.Step(`^I accept the delivery fee$`, tc.iAcceptTheDeliveryFee)
	ctx.Step(`^I pay with the saved card$`, tc.iPayWithTheSavedCard)
	ctx.Step(`^demand in the selected zone rises to (\d+) dispatches$`, tc.demandRisesTo)
	ctx.Step(`^I place the order$`, tc.iPlaceTheOrder)
	ctx.Step(`^I start placing the order$`, tc.iStartPlacingTheOrder)
	ctx.Step(`^I place the order again$`, tc.iPlaceTheOrderAgain)
	ctx.Step(`^the order service responds$`, tc.theOrderServiceResponds)

	// Then steps
	ctx.Step(`^I am on the "([^"]*)" step$`, tc.iAmOnTheStep)
	ctx.Step(`^the selected zone is "([^"]*)"$`, tc.theSelectedZoneIs)
	ctx.Step(`^no zone is selected$`, tc.noZoneIsSelected)
	ctx.Step(`^the delivery fee is "([^"]*)"$`, tc.theDeliveryFeeIs)
	ctx.Step(`^the subtotal is "([^"]*)"$`, tc.theSubtotalIs)
	ctx.Step(`^the tax is "([^"]*)"$`, tc.theTaxIs)
	ctx.Step(`^the total is "([^"]*)"$`, tc.theTotalIs)
	ctx.Step(`^an order reference is shown$`, tc.anOrderReferenceIsShown)
	ctx.Step(`^exactly (\d+) orders? (?:was|were) submitted$`, tc.exactlyNOrdersWereSubmitted)
	ctx.Step(`^the step error is "([^"]*)"$`, tc.theStepErrorIs)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the second attempt is ignored$`, tc.theSecondAttemptIsIgnored)
	ctx.Step(`^the saved card is still selected$`, tc.theSavedCardIsStillSelected)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
