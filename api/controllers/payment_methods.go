package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

type addPaymentMethodPayload struct {
	Type      string `json:"type" validate:"required"`
	Brand     string `json:"brand" validate:"max=32"`
	Last4     string `json:"last4" validate:"omitempty,len=4,numeric"`
	Label     string `json:"label" validate:"max=64"`
	IsDefault bool   `json:"is_default"`
}

// CustomerPaymentMethods lists the customer's saved payment methods.
func CustomerPaymentMethods(store paymentmethods.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method store unavailable"))
			return
		}
		customerID, err := validators.ParseURLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := store.List(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payment_methods": list})
	}
}

// AddCustomerPaymentMethod stores the display fields of a tokenized method.
func AddCustomerPaymentMethod(store paymentmethods.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method store unavailable"))
			return
		}
		customerID, err := validators.ParseURLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addPaymentMethodPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		methodType, err := enums.ParsePaymentMethodType(payload.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method type"))
			return
		}

		method, err := store.Add(ctx, customerID, paymentmethods.AddInput{
			Type:      methodType,
			Brand:     validators.SanitizeString(payload.Brand, 32),
			Last4:     payload.Last4,
			Label:     validators.SanitizeString(payload.Label, 64),
			IsDefault: payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, method)
	}
}
