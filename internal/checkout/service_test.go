package checkout

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalakashico/portal-backend/internal/fulfillment"
	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/internal/payments"
	"github.com/portalakashico/portal-backend/internal/pending"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
	"github.com/portalakashico/portal-backend/pkg/metrics"
)

type fakeAdapter struct {
	provider   enums.PaymentProvider
	orderID    string
	createErr  error
	paid       bool
	status     string
	confirmErr error
	created    int
	confirmed  []string
}

func (f *fakeAdapter) Provider() enums.PaymentProvider { return f.provider }

func (f *fakeAdapter) CreateOrder(ctx context.Context, rec intake.Record) (payments.Order, error) {
	f.created++
	if f.createErr != nil {
		return payments.Order{}, f.createErr
	}
	return payments.Order{ID: f.orderID, RedirectURL: "https://pay.example.com/" + f.orderID}, nil
}

func (f *fakeAdapter) ConfirmOrder(ctx context.Context, id string) (payments.Confirmation, error) {
	f.confirmed = append(f.confirmed, id)
	if f.confirmErr != nil {
		return payments.Confirmation{}, f.confirmErr
	}
	return payments.Confirmation{ID: id, Paid: f.paid, Status: f.status}, nil
}

type fakeFulfiller struct {
	records []intake.Record
	err     error
}

func (f *fakeFulfiller) Fulfill(ctx context.Context, rec intake.Record) (fulfillment.Result, error) {
	f.records = append(f.records, rec)
	if f.err != nil {
		return fulfillment.Result{}, f.err
	}
	return fulfillment.Result{
		ReadingType: rec.ReadingType,
		Title:       "Lectura del Alma",
		Reading:     "texto para " + rec.Name,
		EmailSent:   true,
	}, nil
}

// blockingFulfiller holds every fulfillment until release is closed.
type blockingFulfiller struct {
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	ctxErrs []error
}

func newBlockingFulfiller() *blockingFulfiller {
	return &blockingFulfiller{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

func (f *blockingFulfiller) Fulfill(ctx context.Context, rec intake.Record) (fulfillment.Result, error) {
	f.started <- struct{}{}
	<-f.release
	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	return fulfillment.Result{ReadingType: rec.ReadingType, Reading: "texto para " + rec.Name, EmailSent: true}, nil
}

func (f *blockingFulfiller) seenCtxErrs() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.ctxErrs...)
}

func waitStarted(t *testing.T, f *blockingFulfiller) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fulfillment did not start")
	}
}

type fixture struct {
	svc       *Service
	adapter   *fakeAdapter
	fulfiller *fakeFulfiller
	store     *pending.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fulfiller := &fakeFulfiller{}
	f := newFixtureWith(t, fulfiller)
	f.fulfiller = fulfiller
	return f
}

func newFixtureWith(t *testing.T, fulfiller Fulfiller) *fixture {
	t.Helper()
	adapter := &fakeAdapter{provider: enums.PaymentProviderPayPal, orderID: "ORDER-1", paid: true, status: "COMPLETED"}
	store := pending.NewMemoryStore()
	svc, err := NewService(ServiceParams{
		Registry:       payments.NewRegistry(adapter),
		Store:          store,
		Fulfiller:      fulfiller,
		Metrics:        metrics.NewFulfillmentMetrics(prometheus.NewRegistry()),
		Logger:         logger.New(logger.Options{Output: &bytes.Buffer{}}),
		PaymentTimeout: time.Second,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, adapter: adapter, store: store}
}

type completeOutcome struct {
	completion Completion
	err        error
}

func completeAsync(ctx context.Context, svc *Service, id string) <-chan completeOutcome {
	out := make(chan completeOutcome, 1)
	go func() {
		completion, err := svc.Complete(ctx, enums.PaymentProviderPayPal, id)
		out <- completeOutcome{completion: completion, err: err}
	}()
	return out
}

var almaRecord = intake.Record{
	ReadingType: enums.ReadingTypeAlma,
	Name:        "Ana",
	Email:       "a@x.com",
	Birthdate:   "1990-01-01",
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
}

func TestBeginAndCompleteAlmaOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
	assert.Equal(t, 1, f.store.Len())

	completion, err := f.svc.Complete(ctx, enums.PaymentProviderPayPal, order.ID)
	require.NoError(t, err)
	require.NotNil(t, completion.Result)
	assert.True(t, completion.Paid)
	assert.Equal(t, "COMPLETED", completion.Status)
	assert.Equal(t, enums.ReadingTypeAlma, completion.Result.ReadingType)
	assert.Equal(t, []intake.Record{almaRecord}, f.fulfiller.records)
	assert.Zero(t, f.store.Len())
}

func TestBeginRejectsInvalidRecordWithoutOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Begin(context.Background(), enums.PaymentProviderPayPal, intake.Record{Name: "Ana"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.adapter.created)
	assert.Zero(t, f.store.Len())
}

func TestBeginProviderFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.adapter.createErr = pkgerrors.New(pkgerrors.CodeProvider, "boom")

	_, err := f.svc.Begin(context.Background(), enums.PaymentProviderPayPal, almaRecord)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeProvider))
	assert.Zero(t, f.store.Len())
}

func TestBeginUnknownProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Begin(context.Background(), enums.PaymentProviderSquare, almaRecord)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCompleteIsTakeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.Len(t, f.fulfiller.records, 1)
}

func TestCompleteUnknownOrderDoesNotGenerate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Complete(context.Background(), enums.PaymentProviderPayPal, "UNKNOWN")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Equal(t, MessageRecordMissing, typed.Message())
	assert.Empty(t, f.fulfiller.records)
}

func TestCompleteUnpaidKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.adapter.paid = false
	f.adapter.status = "PAYER_ACTION_REQUIRED"

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	completion, err := f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	assert.False(t, completion.Paid)
	assert.Nil(t, completion.Result)
	assert.Equal(t, "PAYER_ACTION_REQUIRED", completion.Status)
	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, f.fulfiller.records)
}

func TestCompleteConfirmErrorKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.adapter.confirmErr = pkgerrors.New(pkgerrors.CodeProvider, "unavailable")

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.Error(t, err)
	assert.Equal(t, 1, f.store.Len())
}

func TestCompleteFulfillmentFailureConsumesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fulfiller.err = pkgerrors.Wrap(pkgerrors.CodeGeneration, errors.New("quota"), "No se pudo generar la lectura.")

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeGeneration))
	assert.Zero(t, f.store.Len())
}

func TestCompleteFromEventThenSuccessPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	fulfilled, err := f.svc.CompleteFromEvent(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, fulfilled)

	completion, err := f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	require.NotNil(t, completion.Result)
	assert.Equal(t, "texto para Ana", completion.Result.Reading)
	assert.Len(t, f.fulfiller.records, 1)

	_, err = f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCompleteFromEventMissingRecordIsNotAnError(t *testing.T) {
	f := newFixture(t)

	fulfilled, err := f.svc.CompleteFromEvent(context.Background(), enums.PaymentProviderStripe, "cs_missing")
	require.NoError(t, err)
	assert.False(t, fulfilled)
	assert.Empty(t, f.fulfiller.records)
}

func TestCompleteFromEventFailureReachesSuccessPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fulfiller.err = pkgerrors.Wrap(pkgerrors.CodeGeneration, errors.New("quota"), "No se pudo generar la lectura.")

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	started, err := f.svc.CompleteFromEvent(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, started)

	_, err = f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeGeneration))
}

func TestCompleteFromEventRedeliveryDoesNotFulfillTwice(t *testing.T) {
	fulfiller := newBlockingFulfiller()
	f := newFixtureWith(t, fulfiller)
	ctx := context.Background()

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	started, err := f.svc.CompleteFromEvent(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	require.True(t, started)
	waitStarted(t, fulfiller)

	started, err = f.svc.CompleteFromEvent(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	assert.False(t, started)

	close(fulfiller.release)
	require.NoError(t, f.svc.Wait(ctx))
	assert.Len(t, fulfiller.seenCtxErrs(), 1)
}

func TestSuccessPageWaitsForEventFulfillment(t *testing.T) {
	fulfiller := newBlockingFulfiller()
	f := newFixtureWith(t, fulfiller)
	ctx := context.Background()

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	started, err := f.svc.CompleteFromEvent(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	require.True(t, started)
	waitStarted(t, fulfiller)
	assert.Zero(t, f.store.Len())

	pageDone := completeAsync(ctx, f.svc, "ORDER-1")
	select {
	case out := <-pageDone:
		t.Fatalf("success page returned before fulfillment finished: %v", out.err)
	case <-time.After(50 * time.Millisecond):
	}

	close(fulfiller.release)
	select {
	case out := <-pageDone:
		require.NoError(t, out.err)
		require.NotNil(t, out.completion.Result)
		assert.True(t, out.completion.Paid)
		assert.Equal(t, "texto para Ana", out.completion.Result.Reading)
	case <-time.After(2 * time.Second):
		t.Fatal("success page did not receive the reading")
	}
	assert.Len(t, fulfiller.seenCtxErrs(), 1)
}

func TestSuccessPageWaitIsBoundedByContext(t *testing.T) {
	fulfiller := newBlockingFulfiller()
	f := newFixtureWith(t, fulfiller)
	ctx := context.Background()

	_, err := f.svc.Begin(ctx, enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)
	_, err = f.svc.CompleteFromEvent(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	waitStarted(t, fulfiller)

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = f.svc.Complete(shortCtx, enums.PaymentProviderPayPal, "ORDER-1")
	require.Error(t, err)
	assert.False(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	close(fulfiller.release)
	require.NoError(t, f.svc.Wait(ctx))

	completion, err := f.svc.Complete(ctx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	require.NotNil(t, completion.Result)
	assert.Equal(t, "texto para Ana", completion.Result.Reading)
}

func TestCompleteFromEventSurvivesCancelledRequest(t *testing.T) {
	fulfiller := newBlockingFulfiller()
	f := newFixtureWith(t, fulfiller)

	_, err := f.svc.Begin(context.Background(), enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(context.Background())
	started, err := f.svc.CompleteFromEvent(reqCtx, enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	require.True(t, started)
	waitStarted(t, fulfiller)
	cancel()

	close(fulfiller.release)
	require.NoError(t, f.svc.Wait(context.Background()))
	assert.Equal(t, []error{nil}, fulfiller.seenCtxErrs())

	completion, err := f.svc.Complete(context.Background(), enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	require.NotNil(t, completion.Result)
	assert.Equal(t, "texto para Ana", completion.Result.Reading)
}

func TestCompleteSurvivesCancelledRequest(t *testing.T) {
	fulfiller := newBlockingFulfiller()
	f := newFixtureWith(t, fulfiller)

	_, err := f.svc.Begin(context.Background(), enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(context.Background())
	pageDone := completeAsync(reqCtx, f.svc, "ORDER-1")
	waitStarted(t, fulfiller)
	cancel()
	close(fulfiller.release)

	select {
	case out := <-pageDone:
		require.NoError(t, out.err)
		require.NotNil(t, out.completion.Result)
	case <-time.After(2 * time.Second):
		t.Fatal("fulfillment did not finish")
	}
	assert.Equal(t, []error{nil}, fulfiller.seenCtxErrs())
}

func TestWaitHonoursContext(t *testing.T) {
	fulfiller := newBlockingFulfiller()
	f := newFixtureWith(t, fulfiller)
	defer close(fulfiller.release)

	_, err := f.svc.Begin(context.Background(), enums.PaymentProviderPayPal, almaRecord)
	require.NoError(t, err)
	_, err = f.svc.CompleteFromEvent(context.Background(), enums.PaymentProviderPayPal, "ORDER-1")
	require.NoError(t, err)
	waitStarted(t, fulfiller)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.svc.Wait(ctx), context.DeadlineExceeded)
}

func settle(recent *recentResults, id string, result fulfillment.Result) {
	entry, ok := recent.begin(enums.PaymentProviderStripe, id)
	if ok {
		recent.finish(entry, result, nil)
	}
}

func TestRecentResultsExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := newRecentResults(time.Minute, 2)
	recent.now = func() time.Time { return now }

	settle(recent, "a", fulfillment.Result{Title: "a"})
	now = now.Add(2 * time.Minute)
	_, found, err := recent.wait(context.Background(), enums.PaymentProviderStripe, "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecentResultsBounded(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := newRecentResults(time.Hour, 2)
	recent.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		settle(recent, id, fulfillment.Result{Title: id})
		now = now.Add(time.Second)
	}

	_, found, _ := recent.wait(context.Background(), enums.PaymentProviderStripe, "a")
	assert.False(t, found)
	result, found, err := recent.wait(context.Background(), enums.PaymentProviderStripe, "c")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c", result.Title)
}

func TestRecentResultsKeepInFlightEntries(t *testing.T) {
	recent := newRecentResults(time.Hour, 1)

	inflight, ok := recent.begin(enums.PaymentProviderStripe, "a")
	require.True(t, ok)
	settle(recent, "b", fulfillment.Result{Title: "b"})
	settle(recent, "c", fulfillment.Result{Title: "c"})

	recent.finish(inflight, fulfillment.Result{Title: "a"}, nil)
	result, found, err := recent.wait(context.Background(), enums.PaymentProviderStripe, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", result.Title)
}

func TestRecentResultsAbandonWakesWaiters(t *testing.T) {
	recent := newRecentResults(time.Hour, 2)
	entry, ok := recent.begin(enums.PaymentProviderStripe, "a")
	require.True(t, ok)

	type waitOutcome struct {
		found bool
		err   error
	}
	out := make(chan waitOutcome, 1)
	go func() {
		_, found, err := recent.wait(context.Background(), enums.PaymentProviderStripe, "a")
		out <- waitOutcome{found: found, err: err}
	}()
	recent.abandon(enums.PaymentProviderStripe, "a", entry)

	select {
	case got := <-out:
		require.NoError(t, got.err)
		assert.False(t, got.found)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released")
	}
}
