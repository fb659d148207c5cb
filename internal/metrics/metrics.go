package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the poller's Prometheus instruments.
type Collector struct {
	reg *prometheus.Registry

	PollCycles       *prometheus.CounterVec // result label: success|fetch_error|store_error
	VehiclesUpserted prometheus.Counter
	VehiclesTracked  prometheus.Gauge
	PollDuration     prometheus.Histogram
	PollInterval     prometheus.Gauge // seconds
}

func NewCollector(pollInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_cycles_total",
			Help: "Total position poll cycles by outcome.",
		}, []string{"result"}),
		VehiclesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poller_vehicles_upserted_total",
			Help: "Total vehicle positions written to the store.",
		}),
		VehiclesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_vehicles_tracked",
			Help: "Vehicles seen in the most recent successful cycle.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "poller_cycle_duration_seconds",
			Help:    "Duration of one fetch-parse-upsert cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_interval_seconds",
			Help: "Configured poll interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.PollCycles, c.VehiclesUpserted, c.VehiclesTracked,
		c.PollDuration, c.PollInterval,
	)

	c.PollInterval.Set(pollInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
