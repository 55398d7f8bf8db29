package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

// EventCompleter fulfills a paid order identified by a provider event.
type EventCompleter interface {
	CompleteFromEvent(ctx context.Context, provider enums.PaymentProvider, id string) (bool, error)
}

type ServiceParams struct {
	Completer EventCompleter
	Logger    *logger.Logger
}

type Service struct {
	completer EventCompleter
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Completer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event completer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		completer: params.Completer,
		logg:      params.Logger,
	}, nil
}

// HandleEvent fulfills checkout sessions reported as paid. Other event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		if session.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
		}
		ctx = s.logg.WithOrderID(s.logg.WithProvider(ctx, string(enums.PaymentProviderStripe)), session.ID)
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			s.logg.Info(ctx, "checkout session not paid yet")
			return nil
		}
		started, err := s.completer.CompleteFromEvent(ctx, enums.PaymentProviderStripe, session.ID)
		if err != nil {
			return err
		}
		if started {
			s.logg.Info(ctx, "checkout session fulfillment started from webhook")
		}
		return nil
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		s.logg.Warn(s.logg.WithField(ctx, "event_id", event.ID), "checkout session async payment failed")
		return nil
	default:
		return nil
	}
}
