package payments

import (
	"context"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/square"
)

const (
	squareRedirectPath = "/success-square.html"
	squareStatusPaid   = "COMPLETED"
)

// SquareCheckout is the subset of the Square client used by the adapter.
type SquareCheckout interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*sq.PaymentLink, error)
	GetOrder(ctx context.Context, orderID string) (*sq.Order, error)
}

type SquareAdapterParams struct {
	Checkout   SquareCheckout
	Product    Product
	LocationID string
	BaseURL    string
}

// SquareAdapter sells through Quick Pay payment links and confirms by reading the link's order.
type SquareAdapter struct {
	checkout   SquareCheckout
	product    Product
	locationID string
	baseURL    string
}

func NewSquareAdapter(params SquareAdapterParams) (*SquareAdapter, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square checkout client required")
	}
	if strings.TrimSpace(params.LocationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square location id required")
	}
	if strings.TrimSpace(params.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "base url required")
	}
	if !params.Product.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product amount required")
	}
	return &SquareAdapter{
		checkout:   params.Checkout,
		product:    params.Product,
		locationID: strings.TrimSpace(params.LocationID),
		baseURL:    params.BaseURL,
	}, nil
}

func (a *SquareAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderSquare
}

func (a *SquareAdapter) CreateOrder(ctx context.Context, rec intake.Record) (Order, error) {
	link, err := a.checkout.CreatePaymentLink(ctx, square.PaymentLinkParams{
		Name:        a.product.Name,
		MinorAmount: a.product.MinorAmount(),
		Currency:    a.product.Currency,
		LocationID:  a.locationID,
		BuyerEmail:  rec.Email,
		RedirectURL: joinURL(a.baseURL, squareRedirectPath),
		Note:        string(rec.ReadingType),
	})
	if err != nil {
		return Order{}, err
	}
	orderID := derefString(link.GetOrderID())
	url := derefString(link.GetURL())
	if orderID == "" || url == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeProvider, "square returned an incomplete payment link")
	}
	return Order{ID: orderID, RedirectURL: url}, nil
}

func (a *SquareAdapter) ConfirmOrder(ctx context.Context, id string) (Confirmation, error) {
	order, err := a.checkout.GetOrder(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if square.OrderPaid(order) {
		return Confirmation{ID: id, Paid: true, Status: squareStatusPaid}, nil
	}
	return Confirmation{ID: id, Paid: false, Status: square.OrderStatus(order)}, nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
