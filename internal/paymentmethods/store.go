package paymentmethods

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/repo"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

// Method carries the display fields of a saved payment method.
type Method struct {
	ID         uuid.UUID               `json:"id"`
	CustomerID uuid.UUID               `json:"customer_id"`
	Type       enums.PaymentMethodType `json:"type"`
	Brand      string                  `json:"brand,omitempty"`
	Last4      string                  `json:"last4,omitempty"`
	Label      string                  `json:"label,omitempty"`
	IsDefault  bool                    `json:"is_default"`
}

// Display renders the method for the review step, e.g. "Visa ending 4242".
func (m Method) Display() string {
	name := strings.TrimSpace(m.Label)
	if name == "" {
		name = strings.TrimSpace(m.Brand)
	}
	if name == "" {
		name = string(m.Type)
	}
	if m.Last4 == "" {
		return name
	}
	return name + " ending " + m.Last4
}

// AddInput captures a new payment method. Tokenization happens with the
// payment provider; only display fields arrive here.
type AddInput struct {
	Type      enums.PaymentMethodType
	Brand     string
	Last4     string
	Label     string
	IsDefault bool
}

// Store supplies saved payment methods and accepts additions.
type Store interface {
	List(ctx context.Context, customerID uuid.UUID) ([]Method, error)
	Get(ctx context.Context, customerID, id uuid.UUID) (Method, error)
	Add(ctx context.Context, customerID uuid.UUID, input AddInput) (Method, error)
}

// Repository is the gorm Store.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// List returns the customer's methods, default first.
func (r *Repository) List(ctx context.Context, customerID uuid.UUID) ([]Method, error) {
	var rows []models.PaymentMethod
	err := r.DB(ctx).
		Where("customer_id = ?", customerID).
		Order("is_default DESC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Method, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// Get loads one method owned by customerID.
func (r *Repository) Get(ctx context.Context, customerID, id uuid.UUID) (Method, error) {
	var row models.PaymentMethod
	err := r.DB(ctx).Where("id = ? AND customer_id = ?", id, customerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Method{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	if err != nil {
		return Method{}, err
	}
	return fromModel(row), nil
}

// Add stores a method. The first method of a customer becomes the default;
// a new default clears the previous one in the same transaction.
func (r *Repository) Add(ctx context.Context, customerID uuid.UUID, input AddInput) (Method, error) {
	if customerID == uuid.Nil {
		return Method{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validateInput(&input); err != nil {
		return Method{}, err
	}

	var created models.PaymentMethod
	err := r.Transaction(ctx, func(tx repo.Base) error {
		var existing int64
		if err := tx.DB(ctx).Model(&models.PaymentMethod{}).Where("customer_id = ?", customerID).Count(&existing).Error; err != nil {
			return err
		}
		isDefault := input.IsDefault || existing == 0
		if isDefault && existing > 0 {
			if err := tx.DB(ctx).Model(&models.PaymentMethod{}).
				Where("customer_id = ? AND is_default = ?", customerID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		created = models.PaymentMethod{
			CustomerID: customerID,
			Type:       input.Type,
			Brand:      input.Brand,
			Last4:      input.Last4,
			Label:      input.Label,
			IsDefault:  isDefault,
		}
		return tx.DB(ctx).Create(&created).Error
	})
	if err != nil {
		return Method{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment method")
	}
	return fromModel(created), nil
}

func validateInput(input *AddInput) error {
	if input.Type == "" {
		input.Type = enums.PaymentMethodTypeCard
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method type").
			WithDetails(map[string]any{"type": string(input.Type)})
	}
	input.Brand = strings.TrimSpace(input.Brand)
	input.Label = strings.TrimSpace(input.Label)
	input.Last4 = strings.TrimSpace(input.Last4)
	if input.Last4 != "" && !isLast4(input.Last4) {
		return pkgerrors.New(pkgerrors.CodeValidation, "last4 must be four digits")
	}
	if input.Type == enums.PaymentMethodTypeCard && input.Last4 == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "last4 is required for cards")
	}
	return nil
}

func isLast4(value string) bool {
	if len(value) != 4 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func fromModel(row models.PaymentMethod) Method {
	return Method{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		Type:       row.Type,
		Brand:      row.Brand,
		Last4:      row.Last4,
		Label:      row.Label,
		IsDefault:  row.IsDefault,
	}
}
