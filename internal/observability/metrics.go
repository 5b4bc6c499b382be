// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the copy bot. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Signal metrics
	SignalsReceived   *prometheus.CounterVec
	LastSignalSeen    prometheus.Gauge
	UpstreamErrors    *prometheus.CounterVec
	EvaluationLatency prometheus.Histogram

	// Decision metrics
	Decisions *prometheus.CounterVec

	// Execution metrics
	Orders         *prometheus.CounterVec
	OrderSizeUSD   prometheus.Histogram
	OrderLatency   prometheus.Histogram
	TradingEnabled prometheus.Gauge

	// Exposure metrics
	SessionExposureUSD prometheus.Gauge
	OpenPositions      prometheus.Gauge

	// Storage metrics
	StoreErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "polycopy"
	}
	factory := promauto.With(reg)

	return &Metrics{
		SignalsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "signals_received_total",
			Help:      "Total number of target trades detected",
		}, []string{"trader"}),
		LastSignalSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "last_signal_timestamp",
			Help:      "Unix timestamp of the last detected target trade",
		}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "upstream_errors_total",
			Help:      "Total number of failed upstream calls by component",
		}, []string{"component"}),
		EvaluationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "evaluation_latency_seconds",
			Help:      "Strategy evaluation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "decisions_total",
			Help:      "Total number of decisions by trader and reason code",
		}, []string{"trader", "code"}),

		Orders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "orders_total",
			Help:      "Total number of execution attempts by trader and status",
		}, []string{"trader", "status"}),
		OrderSizeUSD: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "order_size_usd",
			Help:      "Size of placed orders in USD",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		OrderLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "order_latency_seconds",
			Help:      "Order submission latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TradingEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trading_enabled",
			Help:      "1 when trading credentials are available",
		}),

		SessionExposureUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "session_exposure_usd",
			Help:      "Committed session exposure in USD",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "open_positions",
			Help:      "Number of markets with committed exposure",
		}),

		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of failed audit writes by store",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler serving the metrics of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordSignal records a detected target trade at unix time ts.
func (m *Metrics) RecordSignal(trader string, ts float64) {
	if m == nil {
		return
	}
	m.SignalsReceived.WithLabelValues(trader).Inc()
	m.LastSignalSeen.Set(ts)
}

// RecordDecision records one evaluation.
func (m *Metrics) RecordDecision(trader, code string, seconds float64) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(trader, code).Inc()
	m.EvaluationLatency.Observe(seconds)
}

// RecordOrder records an execution attempt. sizeUSD is observed only for
// placed orders.
func (m *Metrics) RecordOrder(trader, status string, placed bool, sizeUSD, seconds float64) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(trader, status).Inc()
	if placed {
		m.OrderSizeUSD.Observe(sizeUSD)
		m.OrderLatency.Observe(seconds)
	}
}

// RecordUpstreamError records a failed upstream call.
func (m *Metrics) RecordUpstreamError(component string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(component).Inc()
}

// RecordStoreError records a failed audit write.
func (m *Metrics) RecordStoreError(store string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(store).Inc()
}

// SetExposure updates the exposure gauges.
func (m *Metrics) SetExposure(sessionUSD float64, openPositions int) {
	if m == nil {
		return
	}
	m.SessionExposureUSD.Set(sessionUSD)
	m.OpenPositions.Set(float64(openPositions))
}

// SetTradingEnabled updates the trading-enabled gauge.
func (m *Metrics) SetTradingEnabled(enabled bool) {
	if m == nil {
		return
	}
	if enabled {
		m.TradingEnabled.Set(1)
	} else {
		m.TradingEnabled.Set(0)
	}
}
