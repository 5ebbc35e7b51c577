// Package metrics exports dispatcher progress as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/ZutrixPog/llmdispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "llmdispatch"

var _ dispatcher.Observer = (*Metrics)(nil)

// Metrics is a dispatcher.Observer that updates Prometheus collectors.
type Metrics struct {
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	TasksTotal      *prometheus.CounterVec
	TaskAttempts    prometheus.Histogram
	TaskDuration    prometheus.Histogram
	TasksInFlight   prometheus.Gauge
}

// New registers the collectors with registerer, or with the default
// registerer when it is nil.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Endpoint attempts by endpoint and result",
			},
			[]string{"endpoint", "result"}, // result: ok, error
		),
		AttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Duration of a single endpoint attempt in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"endpoint"},
		),
		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Finished tasks by terminal status",
			},
			[]string{"status"},
		),
		TaskAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_attempts",
				Help:      "Attempts used per finished task",
				Buckets:   prometheus.LinearBuckets(1, 1, 5),
			},
		),
		TaskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Time from first attempt to terminal outcome in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
			},
		),
		TasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_in_flight",
				Help:      "Tasks currently held by a worker",
			},
		),
	}
}

func (m *Metrics) TaskStarted(dispatcher.Task) {
	m.TasksInFlight.Inc()
}

func (m *Metrics) AttemptFinished(a dispatcher.Attempt) {
	result := "ok"
	if a.Err != nil {
		result = "error"
	}
	m.AttemptsTotal.WithLabelValues(a.Endpoint, result).Inc()
	m.AttemptDuration.WithLabelValues(a.Endpoint).Observe(a.Duration.Seconds())
}

// TaskFinished also runs for tasks the queue never delivered; those were
// never counted as in flight.
func (m *Metrics) TaskFinished(o dispatcher.Outcome, _ dispatcher.Progress) {
	if !errors.Is(o.Err, dispatcher.ErrTaskLost) {
		m.TasksInFlight.Dec()
	}
	m.TasksTotal.WithLabelValues(string(o.Status)).Inc()
	m.TaskAttempts.Observe(float64(o.Attempts))
	m.TaskDuration.Observe(o.Finished.Sub(o.Started).Seconds())
}
