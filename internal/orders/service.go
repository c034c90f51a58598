package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

const referencePrefix = "ORD-"

// Submitter places an order and returns its reference.
type Submitter interface {
	Submit(ctx context.Context, req OrderRequest) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service is the order submission endpoint.
type Service struct {
	repo     Repository
	txRunner txRunner
	logg     *logger.Logger
	newID    func() uuid.UUID
}

// NewService constructs the order service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		repo:     params.Repository,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		newID:    uuid.New,
	}, nil
}

// Submit writes the order and its line items in one transaction. A second
// submission for the same session returns the reference already issued.
func (s *Service) Submit(ctx context.Context, req OrderRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	existing, err := s.repo.FindBySession(ctx, req.SessionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	if existing != nil {
		return existing.Reference, nil
	}

	id := s.newID()
	order := buildOrder(id, req)
	items := buildLineItems(id, req.Items)

	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return err
		}
		return txRepo.CreateOrderLineItems(ctx, items)
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			// A concurrent submit for the session won the insert.
			if winner, findErr := s.repo.FindBySession(ctx, req.SessionID); findErr == nil && winner != nil {
				return winner.Reference, nil
			}
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderRef(ctx, order.Reference), map[string]any{
		"checkout_session_id": req.SessionID.String(),
		"total_cents":         order.TotalCents,
	})
	s.logg.Info(logCtx, "order placed")
	return order.Reference, nil
}

// Lookup loads a placed order by reference.
func (s *Service) Lookup(ctx context.Context, reference string) (*Order, error) {
	row, err := s.repo.FindByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	out := &Order{
		ID:          row.ID,
		Reference:   row.Reference,
		SessionID:   row.SessionID,
		Status:      row.Status,
		Fulfillment: row.Fulfillment,
		CreatedAt:   row.CreatedAt,
		Totals: Totals{
			SubtotalCents:    row.SubtotalCents,
			DeliveryFeeCents: row.DeliveryFeeCents,
			TaxCents:         row.TaxCents,
			TotalCents:       row.TotalCents,
		},
	}
	for _, item := range row.LineItems {
		out.Items = append(out.Items, cart.LineItem{
			SKU:            item.SKU,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}
	return out, nil
}

// Reference derives the public order reference from the order id.
func Reference(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return referencePrefix + strings.ToUpper(hex[:8])
}

func validateRequest(req OrderRequest) error {
	invalid := func(msg string) error {
		return pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	if req.SessionID == uuid.Nil {
		return invalid("session id is required")
	}
	if len(req.Items) == 0 {
		return invalid("order has no items")
	}
	if req.PaymentMethodID == uuid.Nil {
		return invalid("payment method is required")
	}
	switch req.Fulfillment {
	case enums.FulfillmentPickup:
		if req.PickupLocationID == nil {
			return invalid("pickup location is required")
		}
	case enums.FulfillmentDelivery:
		if req.DeliveryZoneID == nil || req.ShippingAddress == nil {
			return invalid("delivery zone and address are required")
		}
	default:
		return invalid("fulfillment method is required")
	}
	t := req.Totals
	if t.SubtotalCents != cart.Subtotal(req.Items) {
		return invalid("subtotal does not match line items")
	}
	if t.TotalCents != t.SubtotalCents+t.DeliveryFeeCents+t.TaxCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "total does not add up").
			WithDetails(map[string]any{
				"subtotal_cents":     t.SubtotalCents,
				"delivery_fee_cents": t.DeliveryFeeCents,
				"tax_cents":          t.TaxCents,
				"total_cents":        t.TotalCents,
			})
	}
	return nil
}

func buildOrder(id uuid.UUID, req OrderRequest) *models.Order {
	order := &models.Order{
		ID:               id,
		Reference:        Reference(id),
		SessionID:        req.SessionID,
		CartID:           req.CartID,
		Status:           enums.OrderStatusPlaced,
		Fulfillment:      req.Fulfillment,
		DeliveryZoneID:   req.DeliveryZoneID,
		PickupLocationID: req.PickupLocationID,
		ShippingAddress:  req.ShippingAddress,
		PaymentMethodID:  req.PaymentMethodID,
		SurgeMultiplier:  req.SurgeMultiplier.String(),
		SubtotalCents:    req.Totals.SubtotalCents,
		DeliveryFeeCents: req.Totals.DeliveryFeeCents,
		TaxCents:         req.Totals.TaxCents,
		TotalCents:       req.Totals.TotalCents,
	}
	if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
		order.Instructions = &instructions
	}
	return order
}

func buildLineItems(orderID uuid.UUID, items []cart.LineItem) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderLineItem{
			OrderID:        orderID,
			SKU:            item.SKU,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			TotalCents:     item.TotalCents(),
		})
	}
	return out
}
