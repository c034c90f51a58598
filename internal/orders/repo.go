package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindBySession(ctx context.Context, sessionID uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("LineItems").Create(order).Error
}

func (r *repository) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindBySession returns nil without error when the session has no order.
func (r *repository) FindBySession(ctx context.Context, sessionID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "session_id = ?", sessionID)
}

// FindByReference returns nil without error when the reference is unknown.
func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	return r.findOne(ctx, "reference = ?", reference)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where(query, arg).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
