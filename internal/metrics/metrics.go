package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the Prometheus metrics for udplogd.
type Metrics struct {
	// Counters
	DatagramsReceived *prometheus.CounterVec
	DatagramsDropped  *prometheus.CounterVec
	EventsSent        *prometheus.CounterVec
	SendFailures      *prometheus.CounterVec
	ConnectFailures   *prometheus.CounterVec
	BacklogEvictions  *prometheus.CounterVec
	RetryDropped      *prometheus.CounterVec

	// Gauges
	BacklogDepth *prometheus.GaugeVec
	SinkState    *prometheus.GaugeVec

	// Histograms
	BatchFlushLatency *prometheus.HistogramVec
}

// NewMetrics creates all udplogd metrics and registers them with the
// default registry.
func NewMetrics() *Metrics {
	return NewMetricsOn(prometheus.DefaultRegisterer)
}

// NewMetricsOn creates all udplogd metrics and registers them with reg.
// Tests use this with a private registry.
func NewMetricsOn(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DatagramsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_datagrams_received_total",
				Help: "Total datagrams successfully decoded, by listener",
			},
			[]string{"listener"},
		),

		DatagramsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_datagrams_dropped_total",
				Help: "Total datagrams dropped at decode time, by listener and failure kind",
			},
			[]string{"listener", "reason"},
		),

		EventsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_events_sent_total",
				Help: "Total events delivered to a backend, by sink",
			},
			[]string{"sink"},
		),

		SendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_send_failures_total",
				Help: "Total failed send calls, by sink",
			},
			[]string{"sink"},
		),

		ConnectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_connect_failures_total",
				Help: "Total failed connection attempts, by sink",
			},
			[]string{"sink"},
		),

		BacklogEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_backlog_evictions_total",
				Help: "Total events evicted from a full backlog, by sink",
			},
			[]string{"sink"},
		),

		RetryDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udplogd_retry_dropped_total",
				Help: "Total events dropped after reaching the retry-attempt ceiling, by sink",
			},
			[]string{"sink"},
		),

		BacklogDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "udplogd_backlog_depth",
				Help: "Current number of events buffered for a sink",
			},
			[]string{"sink"},
		),

		SinkState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "udplogd_sink_state",
				Help: "Connection state of a sink (0 disconnected, 1 connecting, 2 connected, 3 backoff)",
			},
			[]string{"sink"},
		),

		BatchFlushLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "udplogd_batch_flush_latency_seconds",
				Help:    "Latency of flushing a batch to a backend",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
	}

	reg.MustRegister(m.DatagramsReceived)
	reg.MustRegister(m.DatagramsDropped)
	reg.MustRegister(m.EventsSent)
	reg.MustRegister(m.SendFailures)
	reg.MustRegister(m.ConnectFailures)
	reg.MustRegister(m.BacklogEvictions)
	reg.MustRegister(m.RetryDropped)
	reg.MustRegister(m.BacklogDepth)
	reg.MustRegister(m.SinkState)
	reg.MustRegister(m.BatchFlushLatency)

	return m
}
