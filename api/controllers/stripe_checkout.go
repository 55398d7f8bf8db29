package controllers

import (
	"net/http"

	"github.com/portalakashico/portal-backend/api/responses"
	"github.com/portalakashico/portal-backend/api/validators"
	"github.com/portalakashico/portal-backend/internal/checkout"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

const (
	MessageStripeSessionFailed  = "No se pudo crear la sesión de pago."
	MessageStripeSessionMissing = "Falta el session_id de Stripe."
	MessageFinalizeFailed       = "No se pudo finalizar la lectura tras el pago."
)

type checkoutSessionResponse struct {
	URL string `json:"url"`
}

type finalizeRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

func (*finalizeRequest) ValidationMessage() string { return MessageStripeSessionMissing }

// CreateCheckoutSession opens a Stripe Checkout session for the submitted form.
func CreateCheckoutSession(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Begin(r.Context(), enums.PaymentProviderStripe, rec)
		if err != nil {
			responses.WriteErrorMessage(r.Context(), logg, w, err, MessageStripeSessionFailed)
			return
		}
		responses.WriteJSON(w, checkoutSessionResponse{URL: order.RedirectURL})
	}
}

// FinalizeReading fulfills the reading once the Stripe session is paid.
func FinalizeReading(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload finalizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		completion, err := svc.Complete(r.Context(), enums.PaymentProviderStripe, payload.SessionID)
		if err != nil {
			responses.WriteErrorMessage(r.Context(), logg, w, err, MessageFinalizeFailed)
			return
		}
		if !completion.Paid || completion.Result == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, checkout.MessagePaymentPending))
			return
		}
		responses.WriteJSON(w, completion.Result)
	}
}
