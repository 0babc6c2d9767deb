package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "transit"

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tripsStarted    prometheus.Counter
	tripsCompleted  prometheus.Counter
	tripsCancelled  *prometheus.CounterVec
	fareRevenue     prometheus.Counter
	ledgerEntries   *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	wsClients       prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry together with the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tripsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_started_total",
			Help:      "Trips opened by a tap-in.",
		}),
		tripsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_completed_total",
			Help:      "Trips closed by a tap-out.",
		}),
		tripsCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_cancelled_total",
			Help:      "Trips cancelled, by reason.",
		}, []string{"reason"}),
		fareRevenue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fare_revenue_total",
			Help:      "Fares debited at tap-out, in currency units.",
		}),
		ledgerEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Committed ledger entries, by kind.",
		}, []string{"kind"}),
		guardRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Operations rejected by a trip or ledger guard.",
		}, []string{"operation", "reason"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trip_feed_clients",
			Help:      "Connected trip feed websocket clients.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) TripStarted() {
	if m != nil {
		m.tripsStarted.Inc()
	}
}

func (m *Metrics) TripCompleted(fare decimal.Decimal) {
	if m != nil {
		m.tripsCompleted.Inc()
		m.fareRevenue.Add(fare.InexactFloat64())
	}
}

func (m *Metrics) TripCancelled(reason string) {
	if m != nil {
		m.tripsCancelled.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) LedgerEntry(amount decimal.Decimal) {
	if m == nil {
		return
	}
	kind := "credit"
	if amount.IsNegative() {
		kind = "debit"
	}
	m.ledgerEntries.WithLabelValues(kind).Inc()
}

func (m *Metrics) GuardRejected(operation, reason string) {
	if m != nil {
		m.guardRejections.WithLabelValues(operation, reason).Inc()
	}
}

func (m *Metrics) FeedClientsChanged(delta int) {
	if m != nil {
		m.wsClients.Add(float64(delta))
	}
}

// ObserveHTTP records one finished request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
