package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeUnpaid   = "unpaid"
	OutcomeNotFound = "not_found"
)

// FulfillmentMetrics records order and fulfillment activity.
type FulfillmentMetrics struct {
	ordersCreated      *prometheus.CounterVec
	ordersConfirmed    *prometheus.CounterVec
	fulfillDuration    *prometheus.HistogramVec
	generationFailures prometheus.Counter
	deliveries         *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_orders_created_total",
		Help: "Payment orders created, by provider and outcome.",
	}, []string{"provider", "outcome"})
	ordersConfirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_orders_confirmed_total",
		Help: "Payment confirmations, by provider and outcome.",
	}, []string{"provider", "outcome"})
	fulfillDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_fulfillment_duration_seconds",
		Help:    "Duration of reading fulfillment in seconds.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
	}, []string{"reading_type", "outcome"})
	generationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_generation_failures_total",
		Help: "Failed reading generation calls.",
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_deliveries_total",
		Help: "Reading emails, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersCreated, ordersConfirmed, fulfillDuration, generationFailures, deliveries)
	return &FulfillmentMetrics{
		ordersCreated:      ordersCreated,
		ordersConfirmed:    ordersConfirmed,
		fulfillDuration:    fulfillDuration,
		generationFailures: generationFailures,
		deliveries:         deliveries,
	}
}

// IncOrderCreated counts an order creation attempt.
func (m *FulfillmentMetrics) IncOrderCreated(provider, outcome string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncOrderConfirmed counts a confirmation attempt.
func (m *FulfillmentMetrics) IncOrderConfirmed(provider, outcome string) {
	if m == nil || m.ordersConfirmed == nil {
		return
	}
	m.ordersConfirmed.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// ObserveFulfillment records how long one fulfillment took.
func (m *FulfillmentMetrics) ObserveFulfillment(readingType, outcome string, duration time.Duration) {
	if m == nil || m.fulfillDuration == nil {
		return
	}
	m.fulfillDuration.WithLabelValues(normalizeLabel(readingType), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func (m *FulfillmentMetrics) IncGenerationFailure() {
	if m == nil || m.generationFailures == nil {
		return
	}
	m.generationFailures.Inc()
}

// IncDelivery counts a delivery attempt; delivered=false is recorded as a failure.
func (m *FulfillmentMetrics) IncDelivery(delivered bool) {
	if m == nil || m.deliveries == nil {
		return
	}
	outcome := OutcomeSuccess
	if !delivered {
		outcome = OutcomeFailure
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// RegisterPendingGauge exposes the number of unconsumed pending orders.
func RegisterPendingGauge(reg prometheus.Registerer, size func() int) {
	if reg == nil || size == nil {
		return
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "portal_pending_orders",
		Help: "Orders created and not yet fulfilled.",
	}, func() float64 {
		return float64(size())
	}))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
