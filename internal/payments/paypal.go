package payments

import (
	"context"
	"strings"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/paypal"
)

const (
	paypalReturnPath = "/success-paypal.html"
	paypalCancelPath = "/"
)

// PayPalOrders is the subset of the PayPal client used by the adapter.
type PayPalOrders interface {
	CreateOrder(ctx context.Context, params paypal.CreateOrderParams) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

type PayPalAdapterParams struct {
	Orders  PayPalOrders
	Product Product
	BaseURL string
}

// PayPalAdapter runs the two-phase order/capture flow.
type PayPalAdapter struct {
	orders  PayPalOrders
	product Product
	baseURL string
}

func NewPayPalAdapter(params PayPalAdapterParams) (*PayPalAdapter, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal orders client required")
	}
	if strings.TrimSpace(params.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "base url required")
	}
	if !params.Product.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product amount required")
	}
	return &PayPalAdapter{
		orders:  params.Orders,
		product: params.Product,
		baseURL: params.BaseURL,
	}, nil
}

func (a *PayPalAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderPayPal
}

func (a *PayPalAdapter) CreateOrder(ctx context.Context, rec intake.Record) (Order, error) {
	order, err := a.orders.CreateOrder(ctx, paypal.CreateOrderParams{
		Amount:      a.product.Amount,
		Currency:    a.product.Currency,
		Description: a.product.Name,
		ReferenceID: string(rec.ReadingType),
		ReturnURL:   joinURL(a.baseURL, paypalReturnPath),
		CancelURL:   joinURL(a.baseURL, paypalCancelPath),
	})
	if err != nil {
		return Order{}, err
	}
	approveURL := order.ApproveURL()
	if order.ID == "" || approveURL == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeProvider, "paypal returned an order without approval link")
	}
	return Order{ID: order.ID, RedirectURL: approveURL}, nil
}

// ConfirmOrder captures the order. An order the buyer has not approved yet is
// reported as unpaid; an order captured earlier is reported as paid.
func (a *PayPalAdapter) ConfirmOrder(ctx context.Context, id string) (Confirmation, error) {
	order, err := a.orders.CaptureOrder(ctx, id)
	switch {
	case err == nil:
	case paypal.IsIssue(err, paypal.IssueOrderNotApproved):
		return Confirmation{ID: id, Paid: false, Status: paypal.StatusPayerActionRequired}, nil
	case paypal.IsIssue(err, paypal.IssueOrderAlreadyCaptured):
		return Confirmation{ID: id, Paid: true, Status: paypal.StatusCompleted}, nil
	default:
		return Confirmation{}, err
	}
	return Confirmation{
		ID:     id,
		Paid:   order.Status == paypal.StatusCompleted,
		Status: order.Status,
	}, nil
}
