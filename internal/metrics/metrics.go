// Package metrics exposes Prometheus collectors for the pipeline on a
// dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nextlevelbuilder/socialpilot/internal/queue"
)

const namespace = "socialpilot"

// Metrics holds every collector. Methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	interactions  *prometheus.CounterVec
	tasksStarted  *prometheus.CounterVec
	tasksFinished *prometheus.CounterVec
	taskWait      *prometheus.HistogramVec
	taskDuration  *prometheus.HistogramVec

	monitorStrategies *prometheus.GaugeVec
	monitorCycles     *prometheus.CounterVec
	monitorDuration   prometheus.Histogram
}

// New creates and registers all collectors, including Go runtime and process
// collectors.
func New(version string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Webhook interactions by kind and routing outcome.",
		}, []string{"kind", "outcome"}),
		tasksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_tasks_started_total",
			Help:      "Reply tasks admitted by the queue.",
		}, []string{"priority"}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_tasks_finished_total",
			Help:      "Reply tasks finished, by result.",
		}, []string{"priority", "result"}),
		taskWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_task_wait_seconds",
			Help:      "Time from submission to start.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"priority"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_task_duration_seconds",
			Help:      "Task execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"priority"}),
		monitorStrategies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_strategies",
			Help:      "Strategies per health status in the last cycle.",
		}, []string{"status"}),
		monitorCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "Monitor cycles by result.",
		}, []string{"result"}),
		monitorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_duration_seconds",
			Help:      "Monitor cycle duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version"})
	info.WithLabelValues(version).Set(1)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		info,
		m.interactions,
		m.tasksStarted,
		m.tasksFinished,
		m.taskWait,
		m.taskDuration,
		m.monitorStrategies,
		m.monitorCycles,
		m.monitorDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GaugeFunc registers a gauge sampled from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) ObserveInteraction(kind, outcome string) {
	m.interactions.WithLabelValues(kind, outcome).Inc()
}

// QueueHooks returns lifecycle hooks that feed the queue collectors.
func (m *Metrics) QueueHooks() queue.Hooks {
	return queue.Hooks{
		Started: func(priority int, _ time.Time, waited time.Duration) {
			p := strconv.Itoa(priority)
			m.tasksStarted.WithLabelValues(p).Inc()
			m.taskWait.WithLabelValues(p).Observe(waited.Seconds())
		},
		Finished: func(priority int, ran time.Duration, err error) {
			p := strconv.Itoa(priority)
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.tasksFinished.WithLabelValues(p, result).Inc()
			m.taskDuration.WithLabelValues(p).Observe(ran.Seconds())
		},
	}
}

func (m *Metrics) ObserveMonitorCycle(statusCounts map[string]int, d time.Duration, failed bool) {
	for status, n := range statusCounts {
		m.monitorStrategies.WithLabelValues(status).Set(float64(n))
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.monitorCycles.WithLabelValues(result).Inc()
	m.monitorDuration.Observe(d.Seconds())
}
