// Package metrics records content store operations as Prometheus metrics.
//
// The CLI is short-lived, so metrics are not served over HTTP. Instead the
// registry is written once per run to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/calvinalkan/cms/pkg/content"
)

const namespace = "cms"

// Collector holds the metrics for one registry.
type Collector struct {
	reg *prometheus.Registry

	OpsTotal      *prometheus.CounterVec
	OpDuration    *prometheus.HistogramVec
	CheckProblems prometheus.Gauge
	Reloads       *prometheus.CounterVec
}

var _ content.Observer = (*Collector)(nil)

// New returns a collector on a fresh registry.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		reg: reg,
		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Content store operations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Content store operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 10},
			},
			[]string{"op"},
		),
		CheckProblems: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "check_problems",
				Help:      "Problems found by the last content check",
			},
		),
		Reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Config reloads by result",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveOp implements [content.Observer].
func (c *Collector) ObserveOp(op string, outcome content.Outcome, d time.Duration) {
	c.OpsTotal.WithLabelValues(op, string(outcome)).Inc()
	c.OpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveReload counts a config reload attempt.
func (c *Collector) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	c.Reloads.WithLabelValues(result).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}

	return nil
}
