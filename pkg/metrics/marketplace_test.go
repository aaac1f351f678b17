package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMarketplaceMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMarketplaceMetrics(reg)

	m.DeliveryAccept(OutcomeAccepted)
	m.DeliveryAccept(OutcomeLost)
	m.DeliveryAccept(OutcomeLost)
	m.PaymentVerified(OutcomeMismatch)
	m.OrderPlaced("cod")
	m.EventHandled("order.delivered", "ok")
	m.EventPublished("order.placed", "dead_letter")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fastbag_delivery_accept_total", "outcome", OutcomeLost); err != nil || got != 2 {
		t.Fatalf("expected 2 lost accepts, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "fastbag_payment_verifications_total", "result", OutcomeMismatch); err != nil || got != 1 {
		t.Fatalf("expected 1 mismatch, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "fastbag_orders_placed_total", "payment_method", "cod"); err != nil || got != 1 {
		t.Fatalf("expected 1 cod order, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "fastbag_outbox_events_published_total", "result", "dead_letter"); err != nil || got != 1 {
		t.Fatalf("expected 1 dead-lettered event, got %f (%v)", got, err)
	}
}

func TestNilMarketplaceMetricsAreNoops(t *testing.T) {
	var m *MarketplaceMetrics
	m.OrderPlaced("online")
	m.SettlementsRecorded(2)

	NewMarketplaceMetrics(nil).DeliveryAccept(OutcomeAccepted)
}

func TestHTTPMetricsObserveByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("POST", "/api/v1/cart/checkout", 201, 10*time.Millisecond)
	m.Observe("POST", "/api/v1/cart/checkout", 201, 20*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fastbag_http_requests_total", "route", "/api/v1/cart/checkout"); err != nil || got != 2 {
		t.Fatalf("expected 2 checkout requests, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "fastbag_http_requests_total", "route", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unmatched route under unknown, got %f (%v)", got, err)
	}

	var nilMetrics *HTTPMetrics
	nilMetrics.Observe("GET", "/", 200, time.Millisecond)
}
