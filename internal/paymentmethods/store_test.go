package paymentmethods

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

func newPaymentDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentMethod{}))
	return db
}

func TestAddDefaultsFirstMethod(t *testing.T) {
	ctx := context.Background()
	store := NewRepository(newPaymentDB(t))
	customerID := uuid.New()

	first, err := store.Add(ctx, customerID, AddInput{Brand: "Visa", Last4: "4242"})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, enums.PaymentMethodTypeCard, first.Type)

	second, err := store.Add(ctx, customerID, AddInput{Type: enums.PaymentMethodTypeWallet, Label: "Apple Pay"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	methods, err := store.List(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, first.ID, methods[0].ID)
}

func TestAddNewDefaultClearsPrevious(t *testing.T) {
	ctx := context.Background()
	store := NewRepository(newPaymentDB(t))
	customerID := uuid.New()

	first, err := store.Add(ctx, customerID, AddInput{Brand: "Visa", Last4: "4242"})
	require.NoError(t, err)
	second, err := store.Add(ctx, customerID, AddInput{Brand: "Amex", Last4: "0005", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	reloaded, err := store.Get(ctx, customerID, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)

	methods, err := store.List(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, methods[0].ID)
}

func TestGetScopesToCustomer(t *testing.T) {
	ctx := context.Background()
	store := NewRepository(newPaymentDB(t))
	method, err := store.Add(ctx, uuid.New(), AddInput{Brand: "Visa", Last4: "4242"})
	require.NoError(t, err)

	_, err = store.Get(ctx, uuid.New(), method.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestAddValidates(t *testing.T) {
	store := NewRepository(newPaymentDB(t))
	cases := []AddInput{
		{Type: "crypto", Last4: "1234"},
		{Brand: "Visa", Last4: "42"},
		{Brand: "Visa", Last4: "abcd"},
		{Brand: "Visa"},
	}
	for _, input := range cases {
		_, err := store.Add(context.Background(), uuid.New(), input)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "input %+v", input)
	}
	_, err := store.Add(context.Background(), uuid.Nil, AddInput{Brand: "Visa", Last4: "4242"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "Visa ending 4242", Method{Brand: "Visa", Last4: "4242"}.Display())
	assert.Equal(t, "Work card ending 0005", Method{Label: "Work card", Brand: "Amex", Last4: "0005"}.Display())
	assert.Equal(t, "wallet", Method{Type: enums.PaymentMethodTypeWallet}.Display())
}
