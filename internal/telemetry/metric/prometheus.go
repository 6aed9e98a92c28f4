package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redikv"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Connection metrics
	ConnectionsActive prometheus.Gauge

	// Command metrics, labeled by command name and ok/error status.
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Store metrics
	KeysTotal       prometheus.GaugeFunc
	UsedMemoryBytes prometheus.GaugeFunc
}

// StoreStats supplies the store-level gauges. The store itself implements
// it; the indirection keeps this package free of store imports.
type StoreStats interface {
	Len() int
	UsedMemory() int64
}

// NewRegistry creates a metrics registry with Go runtime and process
// collectors plus the application metrics. stats may be nil, in which case
// the store gauges are omitted.
func NewRegistry(stats StoreStats) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently served client connections.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total commands processed, by command and status.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"command"}),
	}

	reg.MustRegister(r.ConnectionsActive, r.CommandsTotal, r.CommandDuration)

	if stats != nil {
		r.KeysTotal = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keys_total",
			Help:      "Number of keys in the store.",
		}, func() float64 { return float64(stats.Len()) })
		r.UsedMemoryBytes = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "used_memory_bytes",
			Help:      "Tracked memory footprint of stored entries.",
		}, func() float64 { return float64(stats.UsedMemory()) })
		reg.MustRegister(r.KeysTotal, r.UsedMemoryBytes)
	}

	return r
}

// Handler returns the HTTP handler serving this registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
