package payments

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

const stripeSuccessPath = "/success.html?session_id={CHECKOUT_SESSION_ID}"

// StripeSessions is the subset of the Stripe client used by the adapter.
type StripeSessions interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type StripeAdapterParams struct {
	Sessions StripeSessions
	Product  Product
	// PriceID selects a catalog price; when empty the line item is priced inline.
	PriceID string
	BaseURL string
}

// StripeAdapter opens hosted Checkout Sessions and confirms them by payment status.
type StripeAdapter struct {
	sessions StripeSessions
	product  Product
	priceID  string
	baseURL  string
}

func NewStripeAdapter(params StripeAdapterParams) (*StripeAdapter, error) {
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe sessions client required")
	}
	if strings.TrimSpace(params.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "base url required")
	}
	if strings.TrimSpace(params.PriceID) == "" && !params.Product.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe price id or product amount required")
	}
	return &StripeAdapter{
		sessions: params.Sessions,
		product:  params.Product,
		priceID:  strings.TrimSpace(params.PriceID),
		baseURL:  params.BaseURL,
	}, nil
}

func (a *StripeAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (a *StripeAdapter) CreateOrder(ctx context.Context, rec intake.Record) (Order, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{a.lineItem()},
		CustomerEmail:      stripe.String(rec.Email),
		SuccessURL:         stripe.String(joinURL(a.baseURL, stripeSuccessPath)),
		CancelURL:          stripe.String(joinURL(a.baseURL, "/")),
	}
	params.AddMetadata("tipoLectura", string(rec.ReadingType))
	params.AddMetadata("name", rec.Name)
	params.AddMetadata("email", rec.Email)
	params.AddMetadata("birthdate", rec.Birthdate)

	sess, err := a.sessions.CreateCheckoutSession(ctx, params)
	if err != nil {
		return Order{}, err
	}
	if sess == nil || sess.ID == "" || sess.URL == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeProvider, "stripe returned an incomplete checkout session")
	}
	return Order{ID: sess.ID, RedirectURL: sess.URL}, nil
}

func (a *StripeAdapter) ConfirmOrder(ctx context.Context, id string) (Confirmation, error) {
	sess, err := a.sessions.GetCheckoutSession(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if sess == nil {
		return Confirmation{}, pkgerrors.New(pkgerrors.CodeNotFound, "La sesión de pago no existe.")
	}
	return Confirmation{
		ID:     id,
		Paid:   sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Status: string(sess.PaymentStatus),
	}, nil
}

func (a *StripeAdapter) lineItem() *stripe.CheckoutSessionLineItemParams {
	if a.priceID != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(a.priceID),
			Quantity: stripe.Int64(1),
		}
	}
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(strings.ToLower(a.product.Currency)),
			UnitAmount: stripe.Int64(a.product.MinorAmount()),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(a.product.Name),
			},
		},
	}
}
