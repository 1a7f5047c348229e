// Package metrics exposes registry dispatch statistics as Prometheus
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/eavesdrop"
)

// StatsSource yields dispatch statistics. *eavesdrop.Registry satisfies it.
type StatsSource interface {
	Stats() eavesdrop.Stats
}

// Collector reads a StatsSource on every scrape. It implements
// prometheus.Collector.
type Collector struct {
	src StatsSource

	published     *prometheus.Desc
	delivered     *prometheus.Desc
	failures      *prometheus.Desc
	panics        *prometheus.Desc
	listeners     *prometheus.Desc
	eavesdroppers *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src StatsSource) *Collector {
	return &Collector{
		src: src,
		published: prometheus.NewDesc(
			"eavesdrop_events_published_total",
			"Publications that passed input validation.",
			nil, nil),
		delivered: prometheus.NewDesc(
			"eavesdrop_callbacks_delivered_total",
			"Successful callback invocations.",
			nil, nil),
		failures: prometheus.NewDesc(
			"eavesdrop_callback_failures_total",
			"Callbacks that returned an error.",
			nil, nil),
		panics: prometheus.NewDesc(
			"eavesdrop_callback_panics_total",
			"Callbacks that panicked.",
			nil, nil),
		listeners: prometheus.NewDesc(
			"eavesdrop_listeners",
			"Listeners registered on the global scope.",
			nil, nil),
		eavesdroppers: prometheus.NewDesc(
			"eavesdrop_eavesdroppers",
			"Registered eavesdroppers.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.delivered
	ch <- c.failures
	ch <- c.panics
	ch <- c.listeners
	ch <- c.eavesdroppers
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.delivered, prometheus.CounterValue, float64(s.Delivered))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(s.Panics))
	ch <- prometheus.MustNewConstMetric(c.listeners, prometheus.GaugeValue, float64(s.Listeners))
	ch <- prometheus.MustNewConstMetric(c.eavesdroppers, prometheus.GaugeValue, float64(s.Eavesdroppers))
}

// Register registers a collector for src on reg.
func Register(reg prometheus.Registerer, src StatsSource) error {
	return reg.Register(NewCollector(src))
}
