package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the marketplace counters.
const (
	OutcomeAccepted = "accepted"
	OutcomeLost     = "already_accepted"
	OutcomeMatched  = "matched"
	OutcomeMismatch = "mismatch"
	OutcomeError    = "error"
)

// MarketplaceMetrics counts order placement, payment verification and
// delivery acceptance outcomes.
type MarketplaceMetrics struct {
	ordersPlaced  *prometheus.CounterVec
	payments      *prometheus.CounterVec
	acceptances   *prometheus.CounterVec
	settlements   prometheus.Counter
	eventsHandled *prometheus.CounterVec
	eventsOut     *prometheus.CounterVec
}

func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	m := &MarketplaceMetrics{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders created by checkout, by payment method.",
		}, []string{"payment_method"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Gateway signature verifications by result.",
		}, []string{"result"}),
		acceptances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_accept_total",
			Help:      "Delivery accept attempts by outcome.",
		}, []string{"outcome"}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_settlements_total",
			Help:      "Per-vendor commission settlements recorded.",
		}),
		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Domain events handled by the worker, by type and result.",
		}, []string{"event_type", "result"}),
		eventsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_published_total",
			Help:      "Outbox publish attempts by event type and result.",
		}, []string{"event_type", "result"}),
	}
	reg.MustRegister(m.ordersPlaced, m.payments, m.acceptances, m.settlements, m.eventsHandled, m.eventsOut)
	return m
}

func (m *MarketplaceMetrics) OrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *MarketplaceMetrics) PaymentVerified(result string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *MarketplaceMetrics) DeliveryAccept(outcome string) {
	if m == nil || m.acceptances == nil {
		return
	}
	m.acceptances.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *MarketplaceMetrics) SettlementsRecorded(n int) {
	if m == nil || m.settlements == nil || n <= 0 {
		return
	}
	m.settlements.Add(float64(n))
}

func (m *MarketplaceMetrics) EventHandled(eventType, result string) {
	if m == nil || m.eventsHandled == nil {
		return
	}
	m.eventsHandled.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *MarketplaceMetrics) EventPublished(eventType, result string) {
	if m == nil || m.eventsOut == nil {
		return
	}
	m.eventsOut.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
