package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/orders"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

const maxInstructionsLength = 500

// ZoneResolver resolves a postal code against the delivery zones.
type ZoneResolver interface {
	Resolve(ctx context.Context, postalCode string, orderCents int64) (zones.Resolution, error)
}

// PriceEngine is the surge pricing surface used by checkout.
type PriceEngine interface {
	GetPrice(ctx context.Context, zoneID uuid.UUID, baseCents int64) surge.PricingResult
	Refresh(ctx context.Context, zoneID uuid.UUID) (surge.PricingResult, error)
	Subscribe(zoneID uuid.UUID, fn func(surge.PricingResult)) func()
}

// AddressBook reads and adds customer addresses.
type AddressBook interface {
	Get(ctx context.Context, customerID, id uuid.UUID) (addressbook.SavedAddress, error)
	Add(ctx context.Context, customerID uuid.UUID, input addressbook.AddInput) (addressbook.SavedAddress, error)
}

// PaymentMethods reads the display fields of a saved payment method.
type PaymentMethods interface {
	Get(ctx context.Context, customerID, id uuid.UUID) (paymentmethods.Method, error)
}

// Dependencies are the collaborators of an orchestrator.
type Dependencies struct {
	Cart      cart.Source
	Zones     ZoneResolver
	Pricing   PriceEngine
	Addresses AddressBook
	Pickup    pickup.Directory
	Payments  PaymentMethods
	Orders    orders.Submitter
	Logger    *logger.Logger
	Metrics   *metrics.CheckoutMetrics
	Clock     func() time.Time
}

func (d Dependencies) validate() error {
	missing := func(name string) error {
		return pkgerrors.New(pkgerrors.CodeInternal, name+" required")
	}
	switch {
	case d.Cart == nil:
		return missing("cart source")
	case d.Zones == nil:
		return missing("zone resolver")
	case d.Pricing == nil:
		return missing("price engine")
	case d.Addresses == nil:
		return missing("address book")
	case d.Pickup == nil:
		return missing("pickup directory")
	case d.Payments == nil:
		return missing("payment method store")
	case d.Orders == nil:
		return missing("order submitter")
	}
	return nil
}

// Options tune the orchestrator.
type Options struct {
	// TaxRate nil uses DefaultTaxRate; an explicit zero disables tax.
	TaxRate             *decimal.Decimal
	SubmitTimeout       time.Duration
	CollaboratorTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TaxRate == nil {
		rate := DefaultTaxRate
		o.TaxRate = &rate
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 10 * time.Second
	}
	if o.CollaboratorTimeout <= 0 {
		o.CollaboratorTimeout = 5 * time.Second
	}
	return o
}

// CreateInput starts a session.
type CreateInput struct {
	CustomerID uuid.UUID
	CartID     uuid.UUID
}

// AddressInput selects a saved address or adds a new one.
type AddressInput struct {
	SavedAddressID *uuid.UUID
	New            *addressbook.AddInput
}

// Orchestrator owns one checkout session and moves it through the steps.
// All state changes go through its methods.
type Orchestrator struct {
	deps Dependencies
	opts Options
	now  func() time.Time

	mu          sync.Mutex
	s           Session
	unsubscribe func()

	// Prices pushed by the engine land here and are merged on the next
	// access. The engine calls subscribers synchronously, sometimes from
	// inside a call this orchestrator made while holding mu.
	pushMu sync.Mutex
	pushed *surge.PricingResult
}

// New starts a session for the customer's cart and loads its items.
func New(ctx context.Context, deps Dependencies, opts Options, input CreateInput) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if input.CustomerID == uuid.Nil || input.CartID == uuid.Nil {
		return nil, validation("customer_id and cart_id are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	o := &Orchestrator{deps: deps, opts: opts.withDefaults(), now: clock}
	now := clock()
	o.s = Session{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		CartID:     input.CartID,
		Step:       enums.CheckoutStepDeliveryMethod,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	items, err := o.loadItems(ctx)
	if err != nil {
		return nil, err
	}
	o.s.Items = items
	o.deps.Logger.Info(o.logCtx(ctx), "checkout session started")
	return o, nil
}

// ID returns the session id.
func (o *Orchestrator) ID() uuid.UUID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.s.ID
}

// Snapshot returns a copy of the session with freshly computed totals.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mergePushed()
	return o.snapshot()
}

// Totals recomputes the order totals from the current session.
func (o *Orchestrator) Totals() Totals {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mergePushed()
	return ComputeTotals(o.s, *o.opts.TaxRate)
}

// SelectFulfillment chooses pickup or delivery. Changing the method after
// the first step sends the session back to it.
func (o *Orchestrator) SelectFulfillment(ctx context.Context, method enums.FulfillmentMethod) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		if !method.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "choose delivery or pickup").
				WithDetails(map[string]any{"fulfillment": string(method)})
		}
		if method != o.s.Fulfillment && o.s.Step != enums.CheckoutStepDeliveryMethod {
			o.s.Step = enums.CheckoutStepDeliveryMethod
		}
		o.s.Fulfillment = method
		return nil
	})
}

// SelectPickupLocation picks where a pickup order is collected.
func (o *Orchestrator) SelectPickupLocation(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		cctx, cancel := o.collaboratorCtx(ctx)
		defer cancel()
		loc, err := o.deps.Pickup.Get(cctx, id)
		if err != nil {
			return dependency(err, "load pickup location")
		}
		o.s.PickupLocation = &loc
		return nil
	})
}

// SetAddress selects or adds a delivery address, resolves its zones and
// selects the best eligible zone. Coverage problems are recorded on the
// session's resolution and LastError; the returned error is reserved for
// failed collaborator calls.
func (o *Orchestrator) SetAddress(ctx context.Context, input AddressInput) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		cctx, cancel := o.collaboratorCtx(ctx)
		defer cancel()

		var (
			addr addressbook.SavedAddress
			err  error
		)
		switch {
		case input.SavedAddressID != nil:
			addr, err = o.deps.Addresses.Get(cctx, o.s.CustomerID, *input.SavedAddressID)
		case input.New != nil:
			addr, err = o.deps.Addresses.Add(cctx, o.s.CustomerID, *input.New)
		default:
			return validation("address or saved_address_id is required")
		}
		if err != nil {
			return dependency(err, "save address")
		}
		o.s.Address = &addr
		o.clearZone()

		res, err := o.resolve(cctx)
		if err != nil {
			return err
		}
		if opt, ok := res.BestEligible(); ok {
			o.selectZone(ctx, opt.Zone)
		}
		if resErr := res.Err(); resErr != nil {
			o.s.LastError = newStepError(o.s.Step, resErr)
			return errKeepLastError
		}
		return nil
	})
}

// SelectZone switches to another zone that covers the address.
func (o *Orchestrator) SelectZone(ctx context.Context, zoneID uuid.UUID) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		if o.s.Resolution == nil {
			return validation("add a delivery address first")
		}
		opt, ok := o.s.Resolution.Option(zoneID)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "zone does not cover this address").
				WithDetails(map[string]any{"zone_id": zoneID.String()})
		}
		if err := zones.CheckEligibility(opt.Zone, cart.Subtotal(o.s.Items)); err != nil {
			return err
		}
		o.selectZone(ctx, opt.Zone)
		return nil
	})
}

// RefreshPricing recomputes the surge price of the selected zone.
func (o *Orchestrator) RefreshPricing(ctx context.Context) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		if o.s.Zone == nil {
			return validation("select a delivery zone first")
		}
		zone := *o.s.Zone
		res, err := o.deps.Pricing.Refresh(ctx, zone.ID)
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			res, err = o.deps.Pricing.GetPrice(ctx, zone.ID, zone.BaseFeeCents), nil
		}
		if err != nil {
			return dependency(err, "refresh pricing")
		}
		res = rebase(res, zone.BaseFeeCents)
		o.s.Pricing = &res
		return nil
	})
}

// AcknowledgeFee records that the buyer accepted feeCents. It must equal the
// current delivery fee; a stale acknowledgement is rejected.
func (o *Orchestrator) AcknowledgeFee(ctx context.Context, feeCents int64) (Snapshot, error) {
	return o.mutate(ctx, func(context.Context) error {
		if !o.s.delivery() || o.s.Zone == nil {
			return validation("select a delivery zone first")
		}
		current := DeliveryFee(o.s)
		if feeCents != current {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery fee changed to "+money.Format(current)).
				WithDetails(map[string]any{"delivery_fee_cents": current, "acknowledged_fee_cents": feeCents})
		}
		o.s.AcknowledgedFeeCents = &feeCents
		return nil
	})
}

// SelectPaymentMethod picks a saved payment method.
func (o *Orchestrator) SelectPaymentMethod(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		cctx, cancel := o.collaboratorCtx(ctx)
		defer cancel()
		method, err := o.deps.Payments.Get(cctx, o.s.CustomerID, id)
		if err != nil {
			return dependency(err, "load payment method")
		}
		o.s.PaymentMethod = &method
		return nil
	})
}

// SetInstructions stores free-text delivery instructions.
func (o *Orchestrator) SetInstructions(ctx context.Context, text string) (Snapshot, error) {
	return o.mutate(ctx, func(context.Context) error {
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) > maxInstructionsLength {
			return pkgerrors.New(pkgerrors.CodeValidation, "instructions are too long").
				WithDetails(map[string]any{"max_length": maxInstructionsLength})
		}
		o.s.Instructions = text
		return nil
	})
}

// ReloadCart refreshes the line items and, for delivery, re-checks zone
// eligibility against the new subtotal.
func (o *Orchestrator) ReloadCart(ctx context.Context) (Snapshot, error) {
	return o.mutate(ctx, func(ctx context.Context) error {
		items, err := o.loadItems(ctx)
		if err != nil {
			return err
		}
		o.s.Items = items
		if o.s.Address == nil {
			return nil
		}
		cctx, cancel := o.collaboratorCtx(ctx)
		defer cancel()
		res, err := o.resolve(cctx)
		if err != nil {
			return err
		}
		if o.s.Zone != nil {
			if opt, ok := res.Option(o.s.Zone.ID); ok {
				zone := opt.Zone
				o.s.Zone = &zone
			} else {
				o.clearZone()
			}
		}
		return nil
	})
}

// Next advances one step when the current step and every step before it
// pass their guards. If an earlier step no longer passes, the session moves
// back to it. Review only advances through Submit.
func (o *Orchestrator) Next(ctx context.Context) (Snapshot, error) {
	return o.mutate(ctx, func(context.Context) error {
		switch o.s.Step {
		case enums.CheckoutStepReview:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "submit the order to continue")
		case enums.CheckoutStepConfirmation:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is complete")
		}
		next, _ := nextStep(o.s.Step, o.s)
		if blocked, err := blockedBefore(next, o.s); err != nil {
			o.s.Step = blocked
			return err
		}
		o.s.Step = next
		return nil
	})
}

// Back returns to the previous step. It is a no-op on the first step and
// rejected once the order is confirmed.
func (o *Orchestrator) Back(ctx context.Context) (Snapshot, error) {
	return o.mutate(ctx, func(context.Context) error {
		if o.s.Step == enums.CheckoutStepConfirmation {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is complete")
		}
		if prev, ok := prevStep(o.s.Step, o.s); ok {
			o.s.Step = prev
		}
		return nil
	})
}

// View returns the session with the step to render. A step that does not
// apply (shipping for pickup) renders as the next one, or as an earlier step
// that is still incomplete. The session itself is not changed.
func (o *Orchestrator) View(ctx context.Context) Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mergePushed()
	snap := o.snapshot()
	if step := renderStep(o.s); step != o.s.Step {
		o.deps.Logger.Debug(o.logCtx(ctx), "rendering "+step.String()+" in place of "+o.s.Step.String())
		snap.Step = step
	}
	return snap
}

// Submit places the order. While a submission is in flight further calls
// return (nil, nil). On failure the session stays on review with every
// selection intact and LastError set, so the buyer can retry.
func (o *Orchestrator) Submit(ctx context.Context) (*Receipt, error) {
	o.mu.Lock()
	o.mergePushed()
	if o.s.Processing {
		o.mu.Unlock()
		return nil, nil
	}
	switch o.s.Step {
	case enums.CheckoutStepConfirmation:
		ref := o.s.OrderReference
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed").
			WithDetails(map[string]any{"order_reference": ref})
	case enums.CheckoutStepReview:
	default:
		err := o.fail(pkgerrors.New(pkgerrors.CodeStateConflict, "advance to review before submitting"))
		o.mu.Unlock()
		return nil, err
	}
	if err := guardAll(o.s); err != nil {
		err = o.fail(err)
		o.mu.Unlock()
		return nil, err
	}
	totals := ComputeTotals(o.s, *o.opts.TaxRate)
	req := o.orderRequest(totals)
	o.s.Processing = true
	o.s.LastError = nil
	o.touch()
	sessionID := o.s.ID
	o.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, o.opts.SubmitTimeout)
	ref, err := o.deps.Orders.Submit(sctx, req)
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.s.Processing = false
	o.touch()
	if err != nil {
		o.deps.Metrics.IncSubmission("failure")
		o.deps.Logger.Error(o.logCtx(ctx), "order submission failed", err)
		subErr := pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "order could not be placed, please try again")
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			subErr = subErr.WithDetails(map[string]any{"reason": typed.Message()})
		}
		return nil, o.fail(subErr)
	}

	o.deps.Metrics.IncSubmission("success")
	o.s.Step = enums.CheckoutStepConfirmation
	o.s.OrderReference = ref
	o.s.LastError = nil
	o.stopPricing()
	o.deps.Logger.Info(o.deps.Logger.WithField(o.logCtx(ctx), "order_reference", ref), "checkout completed")
	return &Receipt{SessionID: sessionID, OrderReference: ref, Totals: totals}, nil
}

// Close drops the pricing subscription. The session is unusable afterwards
// only in the sense that prices no longer update live.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopPricing()
}

// idleSince reports the last activity and whether a submission is running.
func (o *Orchestrator) idleSince() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.s.UpdatedAt, o.s.Processing
}

// errKeepLastError signals that fn already recorded LastError and the
// transition otherwise succeeded.
var errKeepLastError = errors.New("keep last error")

func (o *Orchestrator) mutate(ctx context.Context, fn func(ctx context.Context) error) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mergePushed()
	if o.s.Processing {
		return o.snapshot(), pkgerrors.New(pkgerrors.CodeStateConflict, "order submission in progress")
	}
	if o.s.Step == enums.CheckoutStepConfirmation {
		return o.snapshot(), pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is complete")
	}
	o.s.LastError = nil
	err := fn(ctx)
	o.touch()
	if errors.Is(err, errKeepLastError) {
		return o.snapshot(), nil
	}
	if err != nil {
		err = o.fail(err)
		return o.snapshot(), err
	}
	return o.snapshot(), nil
}

func (o *Orchestrator) fail(err error) error {
	o.s.LastError = newStepError(o.s.Step, err)
	return err
}

func (o *Orchestrator) touch() {
	o.s.UpdatedAt = o.now()
}

func (o *Orchestrator) snapshot() Snapshot {
	return Snapshot{Session: o.s.clone(), Totals: ComputeTotals(o.s, *o.opts.TaxRate)}
}

func (o *Orchestrator) loadItems(ctx context.Context) ([]cart.LineItem, error) {
	cctx, cancel := o.collaboratorCtx(ctx)
	defer cancel()
	items, err := o.deps.Cart.Items(cctx, o.s.CartID)
	if err != nil {
		return nil, dependency(err, "load cart")
	}
	return items, nil
}

func (o *Orchestrator) resolve(ctx context.Context) (zones.Resolution, error) {
	res, err := o.deps.Zones.Resolve(ctx, o.s.Address.Address.PostalCode, cart.Subtotal(o.s.Items))
	if err != nil {
		return zones.Resolution{}, dependency(err, "resolve delivery zones")
	}
	o.s.Resolution = &res
	return res, nil
}

func (o *Orchestrator) selectZone(ctx context.Context, zone zones.DeliveryZone) {
	if o.s.Zone == nil || o.s.Zone.ID != zone.ID {
		o.stopPricing()
	}
	o.s.Zone = &zone
	o.s.AcknowledgedFeeCents = nil
	price := rebase(o.deps.Pricing.GetPrice(ctx, zone.ID, zone.BaseFeeCents), zone.BaseFeeCents)
	o.s.Pricing = &price
	if o.unsubscribe == nil {
		base := zone.BaseFeeCents
		o.unsubscribe = o.deps.Pricing.Subscribe(zone.ID, func(res surge.PricingResult) {
			res = rebase(res, base)
			o.pushMu.Lock()
			o.pushed = &res
			o.pushMu.Unlock()
		})
	}
}

func (o *Orchestrator) clearZone() {
	o.stopPricing()
	o.s.Zone = nil
	o.s.Pricing = nil
	o.s.AcknowledgedFeeCents = nil
}

func (o *Orchestrator) stopPricing() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	o.pushMu.Lock()
	o.pushed = nil
	o.pushMu.Unlock()
}

// mergePushed applies the latest pushed price when it belongs to the selected
// zone and is not older than the current one.
func (o *Orchestrator) mergePushed() {
	o.pushMu.Lock()
	pushed := o.pushed
	o.pushed = nil
	o.pushMu.Unlock()
	if pushed == nil || o.s.Zone == nil || pushed.ZoneID != o.s.Zone.ID {
		return
	}
	if o.s.Pricing != nil && pushed.ComputedAt.Before(o.s.Pricing.ComputedAt) {
		return
	}
	o.s.Pricing = pushed
}

func (o *Orchestrator) orderRequest(totals Totals) orders.OrderRequest {
	req := orders.OrderRequest{
		SessionID:       o.s.ID,
		CartID:          o.s.CartID,
		Fulfillment:     o.s.Fulfillment,
		Items:           append([]cart.LineItem(nil), o.s.Items...),
		PaymentMethodID: o.s.PaymentMethod.ID,
		Instructions:    o.s.Instructions,
		SurgeMultiplier: decimal.NewFromInt(1),
		Totals: orders.Totals{
			SubtotalCents:    totals.SubtotalCents,
			DeliveryFeeCents: totals.DeliveryFeeCents,
			TaxCents:         totals.TaxCents,
			TotalCents:       totals.TotalCents,
		},
	}
	if o.s.pickup() {
		id := o.s.PickupLocation.ID
		req.PickupLocationID = &id
		return req
	}
	zoneID := o.s.Zone.ID
	addr := o.s.Address.Address
	req.DeliveryZoneID = &zoneID
	req.ShippingAddress = &addr
	if o.s.Pricing != nil && o.s.Pricing.ZoneID == zoneID {
		req.SurgeMultiplier = o.s.Pricing.Multiplier
	}
	return req
}

func (o *Orchestrator) collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.opts.CollaboratorTimeout)
}

func (o *Orchestrator) logCtx(ctx context.Context) context.Context {
	return o.deps.Logger.WithSessionID(ctx, o.s.ID.String())
}

// rebase expresses a pushed or cached price against this zone's base fee;
// other callers may have priced the zone with a different base.
func rebase(res surge.PricingResult, baseCents int64) surge.PricingResult {
	if res.BaseCents == baseCents {
		return res
	}
	res.BaseCents = baseCents
	res.SurgeCents = money.ApplyRate(baseCents, res.Multiplier)
	return res
}

func dependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
