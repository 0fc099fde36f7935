package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/infra/notify"
)

const namespace = "aishield"

// Metrics implements the controller Recorder and the HTTP observer on a
// dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	submitted  prometheus.Counter
	settled    *prometheus.CounterVec
	superseded prometheus.Counter
	latency    prometheus.Histogram
	httpTotal  *prometheus.CounterVec
	httpTime   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_submitted_total",
			Help:      "Analysis cycles started.",
		}),
		settled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_settled_total",
			Help:      "Analysis cycles settled, by phase and outcome.",
		}, []string{"phase", "outcome"}),
		superseded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_superseded_total",
			Help:      "Outcomes dropped because a newer cycle or a reset replaced them.",
		}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time from submission to settled outcome.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Submitted() { m.submitted.Inc() }

func (m *Metrics) Superseded() { m.superseded.Inc() }

func (m *Metrics) Settled(s domain.State, elapsed time.Duration) {
	outcome := ""
	switch {
	case s.Result != nil:
		outcome = string(s.Result.Classification)
	case s.Error != nil:
		outcome = string(s.Error.Kind)
	}
	m.settled.WithLabelValues(string(s.Phase), outcome).Inc()
	m.latency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpTime.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackSessions exposes the live session count.
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions currently held in memory.",
	}, func() float64 { return float64(count()) }))
}

// TrackDispatcher exposes notification delivery counters.
func (m *Metrics) TrackDispatcher(d *notify.Dispatcher) {
	counter := func(name, help string, pick func(notify.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(pick(d.Stats())) })
	}
	m.registry.MustRegister(
		counter("enqueued_total", "Notifications queued.", func(s notify.Stats) uint64 { return s.Enqueued }),
		counter("dropped_total", "Notifications dropped on a full or closed queue.", func(s notify.Stats) uint64 { return s.Dropped }),
		counter("delivered_total", "Successful sink deliveries.", func(s notify.Stats) uint64 { return s.Delivered }),
		counter("failed_total", "Failed sink deliveries.", func(s notify.Stats) uint64 { return s.Failed }),
	)
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
