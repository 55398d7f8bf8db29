// Package checkout drives a reading through a payment provider: open an order
// for the submitted form, then fulfill it exactly once after the provider
// reports it paid.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/portalakashico/portal-backend/internal/fulfillment"
	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/internal/payments"
	"github.com/portalakashico/portal-backend/internal/pending"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
	"github.com/portalakashico/portal-backend/pkg/metrics"
)

const (
	defaultPaymentTimeout = 20 * time.Second

	MessageRecordMissing  = "No se encontraron los datos de la lectura para esta sesión. Si ya pagaste, contáctame por correo."
	MessagePaymentPending = "El pago aún no está completado."
)

// Fulfiller produces and delivers the reading for a paid record.
type Fulfiller interface {
	Fulfill(ctx context.Context, rec intake.Record) (fulfillment.Result, error)
}

// Completion is the outcome of confirming an order. Result is nil while the
// order is unpaid.
type Completion struct {
	Status string
	Paid   bool
	Result *fulfillment.Result
}

type ServiceParams struct {
	Registry       *payments.Registry
	Store          pending.Store
	Fulfiller      Fulfiller
	Metrics        *metrics.FulfillmentMetrics
	Logger         *logger.Logger
	PaymentTimeout time.Duration
	// RecentTTL controls how long results fulfilled from webhooks stay
	// available to the success page.
	RecentTTL time.Duration
}

type Service struct {
	registry       *payments.Registry
	store          pending.Store
	fulfiller      Fulfiller
	metrics        *metrics.FulfillmentMetrics
	logg           *logger.Logger
	paymentTimeout time.Duration
	recent         *recentResults
	inflight       sync.WaitGroup
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment registry required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pending store required")
	}
	if params.Fulfiller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfiller required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	timeout := params.PaymentTimeout
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	return &Service{
		registry:       params.Registry,
		store:          params.Store,
		fulfiller:      params.Fulfiller,
		metrics:        params.Metrics,
		logg:           params.Logger,
		paymentTimeout: timeout,
		recent:         newRecentResults(params.RecentTTL, defaultRecentCapacity),
	}, nil
}

// Begin validates rec, opens an order with provider and remembers rec under
// the order id. A validation failure opens no order.
func (s *Service) Begin(ctx context.Context, provider enums.PaymentProvider, rec intake.Record) (payments.Order, error) {
	if err := intake.Validate(rec); err != nil {
		return payments.Order{}, err
	}
	adapter, err := s.adapter(provider)
	if err != nil {
		return payments.Order{}, err
	}
	ctx = s.logg.WithProvider(ctx, string(provider))

	callCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	order, err := adapter.CreateOrder(callCtx, rec)
	cancel()
	if err != nil {
		s.metrics.IncOrderCreated(string(provider), metrics.OutcomeFailure)
		return payments.Order{}, err
	}
	if order.ID == "" {
		s.metrics.IncOrderCreated(string(provider), metrics.OutcomeFailure)
		return payments.Order{}, pkgerrors.New(pkgerrors.CodeProvider, "provider returned an order without id")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)
	if replaced := s.store.Put(order.ID, rec); replaced {
		s.logg.Warn(ctx, "pending order replaced")
	}
	s.metrics.IncOrderCreated(string(provider), metrics.OutcomeSuccess)
	s.logg.Info(ctx, "order created")
	return order, nil
}

// Complete confirms id with provider and fulfills its record once paid. An
// unpaid order leaves the record in place so the buyer can retry.
func (s *Service) Complete(ctx context.Context, provider enums.PaymentProvider, id string) (Completion, error) {
	if id == "" {
		return Completion{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	adapter, err := s.adapter(provider)
	if err != nil {
		return Completion{}, err
	}
	ctx = s.logg.WithOrderID(s.logg.WithProvider(ctx, string(provider)), id)

	callCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	confirmation, err := adapter.ConfirmOrder(callCtx, id)
	cancel()
	if err != nil {
		s.metrics.IncOrderConfirmed(string(provider), metrics.OutcomeFailure)
		return Completion{}, err
	}
	if !confirmation.Paid {
		s.metrics.IncOrderConfirmed(string(provider), metrics.OutcomeUnpaid)
		return Completion{Status: confirmation.Status}, nil
	}

	rec, ok := s.store.Take(id)
	if !ok {
		result, found, err := s.recent.wait(ctx, provider, id)
		if err != nil {
			if ctx.Err() != nil {
				return Completion{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wait for fulfillment")
			}
			return Completion{}, err
		}
		if found {
			s.metrics.IncOrderConfirmed(string(provider), metrics.OutcomeSuccess)
			return Completion{Status: confirmation.Status, Paid: true, Result: &result}, nil
		}
		s.metrics.IncOrderConfirmed(string(provider), metrics.OutcomeNotFound)
		return Completion{}, pkgerrors.New(pkgerrors.CodeNotFound, MessageRecordMissing)
	}
	s.metrics.IncOrderConfirmed(string(provider), metrics.OutcomeSuccess)

	result, err := s.fulfill(ctx, rec)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Status: confirmation.Status, Paid: true, Result: &result}, nil
}

// CompleteFromEvent takes the record for id after the provider notified a
// payment and fulfills it in the background. It reports whether fulfillment
// started; false means another caller already owns the record. The success
// page collects the outcome through Complete.
func (s *Service) CompleteFromEvent(ctx context.Context, provider enums.PaymentProvider, id string) (bool, error) {
	ctx = s.logg.WithOrderID(s.logg.WithProvider(ctx, string(provider)), id)

	entry, ok := s.recent.begin(provider, id)
	if !ok {
		s.logg.Debug(ctx, "paid event already being fulfilled")
		return false, nil
	}
	rec, ok := s.store.Take(id)
	if !ok {
		s.recent.abandon(provider, id, entry)
		s.logg.Debug(ctx, "no pending record for paid event")
		return false, nil
	}

	s.inflight.Add(1)
	go func(ctx context.Context) {
		defer s.inflight.Done()
		result, err := s.fulfill(ctx, rec)
		s.recent.finish(entry, result, err)
	}(ctx)
	return true, nil
}

// Wait blocks until background fulfillments finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fulfill ignores caller cancellation: the record is already consumed, and
// generation and delivery carry their own timeouts.
func (s *Service) fulfill(ctx context.Context, rec intake.Record) (fulfillment.Result, error) {
	ctx = context.WithoutCancel(ctx)
	result, err := s.fulfiller.Fulfill(ctx, rec)
	if err != nil {
		// the record is already consumed; this entry is what support reconciles from
		ctx = s.logg.WithReadingType(s.logg.WithStage(ctx, "fulfillment"), string(rec.ReadingType))
		s.logg.Error(ctx, "paid order could not be fulfilled", err)
		return fulfillment.Result{}, err
	}
	s.logg.Info(ctx, "order fulfilled")
	return result, nil
}

func (s *Service) adapter(provider enums.PaymentProvider) (payments.Adapter, error) {
	adapter, ok := s.registry.Get(provider)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider not available: "+string(provider))
	}
	return adapter, nil
}
