package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	FeeRequestsTotal *prometheus.CounterVec
	FeeDuration      *prometheus.HistogramVec
	CacheEvents      *prometheus.CounterVec
	CarrierErrors    *prometheus.CounterVec
	FallbackTotal    prometheus.Counter
	ShipmentsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FeeRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "owls_shipping_fee_requests_total",
				Help: "Total fee resolutions by carrier and outcome",
			},
			[]string{"carrier", "status"},
		),
		FeeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "owls_shipping_fee_duration_seconds",
				Help:    "Fee resolution duration in seconds by carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"carrier"},
		),
		CacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "owls_shipping_fee_cache_events_total",
				Help: "Fee cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "owls_shipping_carrier_errors_total",
				Help: "Carrier API failures by carrier and failure kind",
			},
			[]string{"carrier", "kind"},
		),
		FallbackTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "owls_shipping_fallback_quotes_total",
				Help: "Fee quotes answered by the fallback estimator",
			},
		),
		ShipmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "owls_shipping_shipments_total",
				Help: "Shipment creations by carrier and outcome",
			},
			[]string{"carrier", "status"},
		),
	}
}

// RecordFee records one fee resolution outcome.
func (m *Metrics) RecordFee(carrier, status string, seconds float64) {
	m.FeeRequestsTotal.WithLabelValues(carrier, status).Inc()
	m.FeeDuration.WithLabelValues(carrier).Observe(seconds)
}

// RecordCache records a fee cache lookup result.
func (m *Metrics) RecordCache(result string) {
	m.CacheEvents.WithLabelValues(result).Inc()
}

// RecordCarrierError records a carrier API failure.
func (m *Metrics) RecordCarrierError(carrier, kind string) {
	m.CarrierErrors.WithLabelValues(carrier, kind).Inc()
}

// RecordShipment records a shipment creation outcome.
func (m *Metrics) RecordShipment(carrier, status string) {
	m.ShipmentsTotal.WithLabelValues(carrier, status).Inc()
}
