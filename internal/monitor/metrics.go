package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the monitor's Prometheus collectors.
type Metrics struct {
	ProbesTotal     *prometheus.CounterVec
	ProbeLatency    prometheus.Histogram
	AlertsTotal     *prometheus.CounterVec
	RecoveriesTotal prometheus.Counter
	DeviceFailures  prometheus.Counter
	CycleFailures   prometheus.Counter
	CycleDuration   prometheus.Histogram
	DevicesByStatus *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProbesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netguard_probes_total",
				Help: "Total number of probes by resulting status",
			},
			[]string{"status"},
		),
		ProbeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "netguard_probe_latency_milliseconds",
			Help:    "Round-trip time of successful probes",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 150, 250, 500, 1000, 2000},
		}),
		AlertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netguard_alerts_total",
				Help: "Total number of alerts raised by type",
			},
			[]string{"type"},
		),
		RecoveriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "netguard_recoveries_total",
			Help: "Total number of offline to online transitions",
		}),
		DeviceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "netguard_device_failures_total",
			Help: "Devices skipped in a cycle because processing failed",
		}),
		CycleFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "netguard_cycle_failures_total",
			Help: "Scan cycles that ended early",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "netguard_cycle_duration_seconds",
			Help:    "Duration of a full scan cycle",
			Buckets: prometheus.DefBuckets,
		}),
		DevicesByStatus: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netguard_devices",
				Help: "Monitored devices by status after the last cycle",
			},
			[]string{"status"},
		),
	}
}
