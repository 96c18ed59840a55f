// Package metrics exposes the matching engine's counters to Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Application is attached to every series as the "application" label
const Application = "order-matching-engine"

// Prometheus implements matching.MetricsRecorder on its own registry
type Prometheus struct {
	registry     *prometheus.Registry
	tradesTotal  prometheus.Counter
	matchLatency prometheus.Histogram
	ordersTotal  *prometheus.CounterVec
}

// NewPrometheus creates and registers the engine metrics. Go runtime and process
// collectors are registered too, so the registry is a complete /metrics source.
func NewPrometheus() *Prometheus {
	labels := prometheus.Labels{"application": Application}
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		tradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "trades_executed_total",
			Help:        "Total trades executed by the matching engine",
			ConstLabels: labels,
		}),
		matchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "order_match_latency_seconds",
			Help:        "Time spent matching one incoming order",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "orders_received_total",
			Help:        "Orders accepted for matching, by side",
			ConstLabels: labels,
		}, []string{"side"}),
	}

	p.registry.MustRegister(
		p.tradesTotal,
		p.matchLatency,
		p.ordersTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// IncrementTradeCount counts one executed trade
func (p *Prometheus) IncrementTradeCount() {
	p.tradesTotal.Inc()
}

// RecordLatency observes the duration of one match call
func (p *Prometheus) RecordLatency(d time.Duration) {
	p.matchLatency.Observe(d.Seconds())
}

// IncrementOrders counts an accepted order
func (p *Prometheus) IncrementOrders(side string) {
	p.ordersTotal.WithLabelValues(side).Inc()
}

// Registry returns the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
