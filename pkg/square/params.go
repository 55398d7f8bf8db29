package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentLinkParams describes a Quick Pay link for one item at a fixed price.
type PaymentLinkParams struct {
	Name           string
	MinorAmount    int64
	Currency       string
	LocationID     string
	BuyerEmail     string
	RedirectURL    string
	Note           string
	IdempotencyKey string
}

func (p PaymentLinkParams) toSquareRequest(idempotencyKey string) *sqcheckout.CreatePaymentLinkRequest {
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		QuickPay: &sq.QuickPay{
			Name:       strings.TrimSpace(p.Name),
			PriceMoney: moneyPtr(p.MinorAmount, p.Currency),
			LocationID: strings.TrimSpace(p.LocationID),
		},
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.PaymentNote = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.RedirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(trimmed)}
	}
	if trimmed := strings.TrimSpace(p.BuyerEmail); trimmed != "" {
		req.PrePopulatedData = &sq.PrePopulatedData{BuyerEmail: ptrString(trimmed)}
	}
	return req
}

// OrderPaid reports whether a payment-link order has been paid: either the
// order is completed, or it carries tenders and nothing is left to pay.
func OrderPaid(order *sq.Order) bool {
	if order == nil {
		return false
	}
	if state := order.GetState(); state != nil && *state == sq.OrderStateCompleted {
		return true
	}
	if len(order.GetTenders()) == 0 {
		return false
	}
	due := order.GetNetAmountDueMoney()
	return due == nil || due.GetAmount() == nil || *due.GetAmount() == 0
}

// OrderStatus returns the order state as a string, empty when unknown.
func OrderStatus(order *sq.Order) string {
	if order == nil || order.GetState() == nil {
		return ""
	}
	return string(*order.GetState())
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
