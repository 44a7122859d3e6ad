// README: Prometheus metrics for QR activation and live trip tracking.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QRValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordertrack_qr_validations_total",
			Help: "QR validations by outcome (accepted or rejection reason)",
		},
		[]string{"outcome"},
	)

	PayloadsBuiltTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordertrack_qr_payloads_built_total",
			Help: "Total number of signed QR payloads built",
		},
	)

	OrderActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordertrack_order_activations_total",
			Help: "Order activation attempts by scan mode and result",
		},
		[]string{"mode", "result"},
	)

	LocationSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordertrack_location_samples_total",
			Help: "Location samples by ingestion result",
		},
		[]string{"result"},
	)

	RouteFetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordertrack_route_fetch_failures_total",
			Help: "Planned route lookups that failed and fell back to straight-line progress",
		},
	)

	ActiveTrips = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ordertrack_active_trips",
			Help: "Trips currently tracked in memory",
		},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordertrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(QRValidationsTotal)
		prometheus.MustRegister(PayloadsBuiltTotal)
		prometheus.MustRegister(OrderActivationsTotal)
		prometheus.MustRegister(LocationSamplesTotal)
		prometheus.MustRegister(RouteFetchFailuresTotal)
		prometheus.MustRegister(ActiveTrips)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
