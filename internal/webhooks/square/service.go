package squarewebhook

import (
	"context"
	"strings"

	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

const (
	eventPaymentCreated = "payment.created"
	eventPaymentUpdated = "payment.updated"

	paymentStatusCompleted = "COMPLETED"
	paymentStatusFailed    = "FAILED"
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

type Event struct {
	MerchantID string    `json:"merchant_id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment *Payment `json:"payment"`
}

// Payment is the part of a Square payment notification needed to find the order.
type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// HandleEvent fulfills payment-link orders once Square reports the payment completed.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case eventPaymentCreated, eventPaymentUpdated:
		payment := event.Data.Object.Payment
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		if payment.OrderID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment order id missing")
		}
		ctx = s.logg.WithOrderID(s.logg.WithProvider(ctx, string(enums.PaymentProviderSquare)), payment.OrderID)

		switch strings.ToUpper(payment.Status) {
		case paymentStatusCompleted:
		case paymentStatusFailed:
			s.logg.Warn(s.logg.WithField(ctx, "payment_id", payment.ID), "square payment failed")
			return nil
		default:
			s.logg.Debug(ctx, "square payment not completed yet")
			return nil
		}

		started, err := s.completer.CompleteFromEvent(ctx, enums.PaymentProviderSquare, payment.OrderID)
		if err != nil {
			return err
		}
		if started {
			s.logg.Info(ctx, "square order fulfillment started from webhook")
		}
		return nil
	default:
		return nil
	}
}
