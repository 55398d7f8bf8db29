package squarewebhook

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

func TestService_HandleCompletedPaymentFulfills(t *testing.T) {
	completer := &stubCompleter{fulfilled: true}
	service := newTestService(t, completer)

	if err := service.HandleEvent(context.Background(), paymentEvent("payment.updated", "ORD-1", "COMPLETED")); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(completer.calls) != 1 || completer.calls[0] != "ORD-1" {
		t.Fatalf("expected completion for ORD-1, got %v", completer.calls)
	}
	if completer.provider != enums.PaymentProviderSquare {
		t.Fatalf("expected square provider, got %s", completer.provider)
	}
}

func TestService_HandlePendingAndFailedPaymentsAreIgnored(t *testing.T) {
	completer := &stubCompleter{}
	service := newTestService(t, completer)

	for _, status := range []string{"APPROVED", "PENDING", "FAILED"} {
		if err := service.HandleEvent(context.Background(), paymentEvent("payment.created", "ORD-2", status)); err != nil {
			t.Fatalf("handle %s: %v", status, err)
		}
	}
	if len(completer.calls) != 0 {
		t.Fatalf("expected no completion, got %v", completer.calls)
	}
}

func TestService_HandleUnrelatedEventIsIgnored(t *testing.T) {
	completer := &stubCompleter{}
	service := newTestService(t, completer)

	if err := service.HandleEvent(context.Background(), &Event{EventID: "evt", Type: "invoice.paid"}); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(completer.calls) != 0 {
		t.Fatalf("expected unrelated event ignored")
	}
}

func TestService_HandlePaymentWithoutOrder(t *testing.T) {
	service := newTestService(t, &stubCompleter{})

	err := service.HandleEvent(context.Background(), paymentEvent("payment.updated", "", "COMPLETED"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	err = service.HandleEvent(context.Background(), &Event{Type: "payment.updated"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing payment, got %v", err)
	}
}

func TestService_HandleEventPropagatesCompletionError(t *testing.T) {
	completer := &stubCompleter{err: pkgerrors.Wrap(pkgerrors.CodeDelivery, errors.New("resend down"), "send")}
	service := newTestService(t, completer)

	err := service.HandleEvent(context.Background(), paymentEvent("payment.updated", "ORD-3", "COMPLETED"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestIdempotencyGuardUsesSquareScope(t *testing.T) {
	store := &fakeIdempotencyStore{keys: map[string]bool{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	ctx := context.Background()

	if seen, err := guard.CheckAndMark(ctx, "evt_1"); err != nil || seen {
		t.Fatalf("first delivery should be new, got %v %v", seen, err)
	}
	if !store.keys["square_webhook:evt_1"] {
		t.Fatalf("expected square scoped key, got %v", store.keys)
	}
	if seen, _ := guard.CheckAndMark(ctx, "evt_1"); !seen {
		t.Fatalf("redelivery should be detected")
	}
	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if seen, _ := guard.CheckAndMark(ctx, "evt_1"); seen {
		t.Fatalf("deleted event should be processable again")
	}
}

func newTestService(t *testing.T, completer *stubCompleter) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Completer: completer,
		Logger:    logger.New(logger.Options{Output: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

func paymentEvent(eventType, orderID, status string) *Event {
	return &Event{
		EventID: "evt_" + orderID,
		Type:    eventType,
		Data: EventData{
			Type: "payment",
			ID:   "pay_1",
			Object: EventObject{
				Payment: &Payment{ID: "pay_1", OrderID: orderID, Status: status},
			},
		},
	}
}

type stubCompleter struct {
	calls     []string
	provider  enums.PaymentProvider
	fulfilled bool
	err       error
}

func (s *stubCompleter) CompleteFromEvent(ctx context.Context, provider enums.PaymentProvider, id string) (bool, error) {
	s.calls = append(s.calls, id)
	s.provider = provider
	return s.fulfilled, s.err
}

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}
