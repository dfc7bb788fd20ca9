// Package prometheus provides an aviator.MetricsProvider backed by
// Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/aviator"
)

// Metrics records session activity as Prometheus metrics. One Metrics may
// be shared by every session in a process.
type Metrics struct {
	health          prometheus.Gauge
	healthChanges   *prometheus.CounterVec
	polls           *prometheus.CounterVec
	pollDuration    *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	transitionTime  prometheus.Histogram
	committedTarget prometheus.Gauge
	signals         *prometheus.CounterVec
}

// New creates the collectors under namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		health: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_health",
			Help:      "Current feed health: 0 loading, 1 healthy, 2 degraded, 3 empty.",
		}),
		healthChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_health_changes_total",
			Help:      "Feed health transitions.",
		}, []string{"from", "to"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed feed polls by result and failure stage.",
		}, []string{"result", "stage"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Feed poll latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Value transitions by phase.",
		}, []string{"phase"}),
		transitionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time from transition start to completion.",
			Buckets:   []float64{0.25, 0.5, 0.75, 1, 1.5, 2, 5},
		}),
		committedTarget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "committed_target",
			Help:      "Most recently committed multiplier.",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_signals_total",
			Help:      "Signals passed to the scene bridge by name and outcome.",
		}, []string{"signal", "outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.health, m.healthChanges, m.polls, m.pollDuration,
		m.transitions, m.transitionTime, m.committedTarget, m.signals,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnHealthChange implements aviator.MetricsProvider.
func (m *Metrics) OnHealthChange(from, to aviator.Health) {
	m.health.Set(float64(to))
	m.healthChanges.WithLabelValues(from.String(), to.String()).Inc()
}

// OnPollSuccess implements aviator.MetricsProvider.
func (m *Metrics) OnPollSuccess(latency time.Duration) {
	m.polls.WithLabelValues("success", "").Inc()
	m.pollDuration.WithLabelValues("success").Observe(latency.Seconds())
}

// OnPollFailure implements aviator.MetricsProvider.
func (m *Metrics) OnPollFailure(stage string, latency time.Duration) {
	m.polls.WithLabelValues("failure", stage).Inc()
	m.pollDuration.WithLabelValues("failure").Observe(latency.Seconds())
}

// OnTransitionStart implements aviator.MetricsProvider.
func (m *Metrics) OnTransitionStart(_, _ float64) {
	m.transitions.WithLabelValues("started").Inc()
}

// OnTransitionComplete implements aviator.MetricsProvider.
func (m *Metrics) OnTransitionComplete(target float64, elapsed time.Duration) {
	m.transitions.WithLabelValues("completed").Inc()
	m.transitionTime.Observe(elapsed.Seconds())
	m.committedTarget.Set(target)
}

// OnSignalSent implements aviator.MetricsProvider.
func (m *Metrics) OnSignalSent(name string) {
	m.signals.WithLabelValues(name, "sent").Inc()
}

// OnSignalSkipped implements aviator.MetricsProvider.
func (m *Metrics) OnSignalSkipped(name string) {
	m.signals.WithLabelValues(name, "skipped").Inc()
}

// OnSignalFailed implements aviator.MetricsProvider.
func (m *Metrics) OnSignalFailed(name string) {
	m.signals.WithLabelValues(name, "failed").Inc()
}

// Ensure Metrics implements aviator.MetricsProvider.
var _ aviator.MetricsProvider = (*Metrics)(nil)
