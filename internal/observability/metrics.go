package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "envdata"

// Metrics holds the Prometheus collectors for provider calls, aggregation and event derivation.
// All recording methods are safe on a nil *Metrics.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	Aggregations     *prometheus.CounterVec   // labels: source={primary,fallback,failed}
	Fallbacks        prometheus.Counter
	AirQualityMisses prometheus.Counter
	EventsDerived    *prometheus.CounterVec // labels: type, severity
	HistoryRequests  *prometheus.CounterVec // labels: outcome={success,error}
	CircuitState     *prometheus.GaugeVec   // labels: provider; 0 closed, 1 half-open, 2 open
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Upstream provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		Aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Reading aggregations by the tier that satisfied them.",
		}, []string{"source"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Aggregations where the primary forecast provider failed.",
		}),
		AirQualityMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "air_quality_misses_total",
			Help:      "Readings returned without air quality because the provider failed.",
		}),
		EventsDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_derived_total",
			Help:      "Climate events emitted by the rule engine.",
		}, []string{"type", "severity"}),
		HistoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_requests_total",
			Help:      "Historical series requests by outcome.",
		}, []string{"outcome"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_circuit_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open).",
		}, []string{"provider"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.Aggregations,
		m.Fallbacks,
		m.AirQualityMisses,
		m.EventsDerived,
		m.HistoryRequests,
		m.CircuitState,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) ObserveProviderRequest(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveAggregation(source string, fellBack bool) {
	if m == nil {
		return
	}
	m.Aggregations.WithLabelValues(source).Inc()
	if fellBack {
		m.Fallbacks.Inc()
	}
}

func (m *Metrics) ObserveAirQualityMiss() {
	if m == nil {
		return
	}
	m.AirQualityMisses.Inc()
}

func (m *Metrics) ObserveEvent(eventType, severity string) {
	if m == nil {
		return
	}
	m.EventsDerived.WithLabelValues(eventType, severity).Inc()
}

func (m *Metrics) ObserveHistory(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.HistoryRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetCircuitState(provider string, state int) {
	if m == nil {
		return
	}
	m.CircuitState.WithLabelValues(provider).Set(float64(state))
}
