package controllers

import (
	"context"
	"net/http"

	"github.com/portalakashico/portal-backend/api/responses"
	"github.com/portalakashico/portal-backend/api/validators"
	"github.com/portalakashico/portal-backend/internal/checkout"
	"github.com/portalakashico/portal-backend/internal/fulfillment"
	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/internal/payments"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

const (
	MessagePayPalOrderFailed   = "No se pudo crear la orden de PayPal."
	MessagePayPalOrderMissing  = "Falta el orderID de PayPal."
	MessagePayPalCaptureFailed = "No se pudo capturar el pago de PayPal."
	MessageSquareLinkFailed    = "No se pudo crear el enlace de pago de Square."
	MessageSquareOrderMissing  = "Falta el orderID de Square."
	MessageSquareConfirmFailed = "No se pudo confirmar el pago de Square."
)

// CheckoutService is the payment flow behind the order routes.
type CheckoutService interface {
	Begin(ctx context.Context, provider enums.PaymentProvider, rec intake.Record) (payments.Order, error)
	Complete(ctx context.Context, provider enums.PaymentProvider, id string) (checkout.Completion, error)
}

type orderIDRequest struct {
	OrderID string `json:"orderID" validate:"required,max=255"`
	message string
}

func (r *orderIDRequest) ValidationMessage() string { return r.message }

type confirmResponse struct {
	Status    string              `json:"status"`
	Resultado *fulfillment.Result `json:"resultado,omitempty"`
}

// CreateOrder opens an order with provider for the submitted form and
// returns the order id and the URL the buyer must visit.
func CreateOrder(svc CheckoutService, provider enums.PaymentProvider, failureMessage string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		rec, err := decodeRecord(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Begin(r.Context(), provider, rec)
		if err != nil {
			responses.WriteErrorMessage(r.Context(), logg, w, err, failureMessage)
			return
		}
		responses.WriteJSON(w, order)
	}
}

// ConfirmOrder confirms a PayPal or Square order. An order that is not paid
// yet answers with its status only.
func ConfirmOrder(svc CheckoutService, provider enums.PaymentProvider, missingIDMessage, failureMessage string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		payload := orderIDRequest{message: missingIDMessage}
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		completion, err := svc.Complete(r.Context(), provider, payload.OrderID)
		if err != nil {
			responses.WriteErrorMessage(r.Context(), logg, w, err, failureMessage)
			return
		}
		resp := confirmResponse{Status: completion.Status}
		if completion.Paid {
			resp.Resultado = completion.Result
		}
		responses.WriteJSON(w, resp)
	}
}
