package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing, so tests can run the engine without touching the
// default registry.
type Metrics struct {
	// Command metrics
	commandDuration *prometheus.HistogramVec
	commandTotal    *prometheus.CounterVec

	// Connection metrics
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter

	// Store metrics
	storeKeys      prometheus.Gauge
	storeEvictions prometheus.Gauge

	// AOF metrics
	aofAppends prometheus.Gauge
	aofBytes   prometheus.Gauge
}

// NewMetrics creates a new metrics instance registered with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		commandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imds_command_duration_seconds",
				Help:    "Duration of command execution in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command", "status"},
		),
		commandTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imds_commands_total",
				Help: "Total number of commands executed",
			},
			[]string{"command", "status"},
		),
		connectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "imds_connections_active",
				Help: "Number of currently open client connections",
			},
		),
		connectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "imds_connections_total",
				Help: "Total number of accepted client connections",
			},
		),
		storeKeys: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "imds_store_keys",
				Help: "Number of live keys in the store",
			},
		),
		storeEvictions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "imds_store_evictions_total",
				Help: "Total number of LRU evictions",
			},
		),
		aofAppends: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "imds_aof_records_total",
				Help: "Total number of records appended to the AOF",
			},
		),
		aofBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "imds_aof_bytes_total",
				Help: "Total number of bytes appended to the AOF",
			},
		),
	}
}

// ObserveCommand records one executed command with its wire status.
func (m *Metrics) ObserveCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command, status).Observe(duration.Seconds())
}

// ConnOpened records an accepted connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

// SetStoreStats mirrors store counters into the gauges.
func (m *Metrics) SetStoreStats(keys, evictions int64) {
	if m == nil {
		return
	}
	m.storeKeys.Set(float64(keys))
	m.storeEvictions.Set(float64(evictions))
}

// SetAOFStats mirrors AOF counters into the gauges.
func (m *Metrics) SetAOFStats(appends, bytes int64) {
	if m == nil {
		return
	}
	m.aofAppends.Set(float64(appends))
	m.aofBytes.Set(float64(bytes))
}
