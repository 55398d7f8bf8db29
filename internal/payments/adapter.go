// Package payments puts every supported payment processor behind one Adapter
// interface: create a payable order, then confirm it once the buyer has paid.
package payments

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/pkg/config"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

// Order is a payable order opened with a provider.
type Order struct {
	ID          string `json:"id"`
	RedirectURL string `json:"url"`
}

// Confirmation is the provider's verdict on an order.
type Confirmation struct {
	ID     string
	Paid   bool
	Status string
}

// Adapter is implemented once per payment provider.
type Adapter interface {
	Provider() enums.PaymentProvider
	CreateOrder(ctx context.Context, rec intake.Record) (Order, error)
	ConfirmOrder(ctx context.Context, id string) (Confirmation, error)
}

// Product is the single item sold. Its price comes from configuration, never from a request.
type Product struct {
	Name     string
	Amount   decimal.Decimal
	Currency string
}

// ProductFromConfig parses the configured price once.
func ProductFromConfig(cfg config.PricingConfig) (Product, error) {
	amount, err := cfg.Price()
	if err != nil {
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid price configuration")
	}
	name := strings.TrimSpace(cfg.ProductName)
	if name == "" {
		name = "Lectura Akáshica"
	}
	return Product{Name: name, Amount: amount, Currency: cfg.CurrencyCode()}, nil
}

// MinorAmount returns the price in the currency's minor unit: cents for USD,
// whole yen for JPY.
func (p Product) MinorAmount() int64 {
	return p.Amount.Shift(config.CurrencyExponent(p.Currency)).IntPart()
}

// Registry maps each configured provider to its adapter.
type Registry struct {
	adapters map[enums.PaymentProvider]Adapter
}

// NewRegistry registers the given adapters; nil adapters are skipped.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[enums.PaymentProvider]Adapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		r.adapters[adapter.Provider()] = adapter
	}
	return r
}

// Get returns the adapter for provider.
func (r *Registry) Get(provider enums.PaymentProvider) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[provider]
	return adapter, ok
}

// Providers lists the registered providers in a stable order.
func (r *Registry) Providers() []enums.PaymentProvider {
	if r == nil {
		return nil
	}
	out := make([]enums.PaymentProvider, 0, len(r.adapters))
	for provider := range r.adapters {
		out = append(out, provider)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
