package monitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"routewatch/internal/alert"
	"routewatch/internal/model"
)

// Metrics holds the cycle metrics. The process exits after each run, so
// metrics are pushed to a Pushgateway rather than scraped. All methods are
// nil-safe so callers need not guard for the metrics-disabled case.
type Metrics struct {
	registry *prometheus.Registry
	url      string
	job      string

	cycleTotal       *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	routeAge         prometheus.Gauge
	cycleDuration    prometheus.Gauge
}

// NewMetrics creates and registers the cycle metrics. url may be empty, in
// which case Push is a no-op.
func NewMetrics(url, job string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		url:      url,
		job:      job,
		cycleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routewatch_cycle_total",
				Help: "Completed monitor cycles by resulting status.",
			},
			[]string{"status"},
		),
		dispatchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routewatch_dispatch_failures_total",
				Help: "Alert dispatches that failed on at least one channel.",
			},
			[]string{"kind"},
		),
		routeAge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "routewatch_route_age_seconds",
				Help: "Age of the watched route at the last observation; 0 when absent.",
			},
		),
		cycleDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "routewatch_cycle_duration_seconds",
				Help: "Duration of the last monitor cycle in seconds.",
			},
		),
	}

	m.registry.MustRegister(m.cycleTotal, m.dispatchFailures, m.routeAge, m.cycleDuration)
	return m
}

// ObserveCycle records the outcome of one cycle.
func (m *Metrics) ObserveCycle(status model.Status, info model.RouteInfo, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cycleTotal.WithLabelValues(string(status)).Inc()
	if info.Exists {
		m.routeAge.Set(float64(info.AgeSeconds))
	} else {
		m.routeAge.Set(0)
	}
	m.cycleDuration.Set(elapsed.Seconds())
}

// ObserveDispatchFailure records a dispatch that failed on some channel.
func (m *Metrics) ObserveDispatchFailure(kind alert.Kind) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(string(kind)).Inc()
}

// Push sends the metrics to the Pushgateway, if one is configured.
func (m *Metrics) Push(ctx context.Context) error {
	if m == nil || m.url == "" {
		return nil
	}
	return push.New(m.url, m.job).Gatherer(m.registry).PushContext(ctx)
}
