// Package metrics counts work unit outcomes for Prometheus.
package metrics

import (
	"fmt"
	"time"

	"db-extend/internal/workunit"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements workunit.Reporter on its own registry.
type Collector struct {
	unitsTotal   *prometheus.CounterVec
	unitDuration *prometheus.HistogramVec
	registry     *prometheus.Registry
}

func NewCollector(database string) *Collector {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"database": database}

	c := &Collector{
		unitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "dbextend_work_units_total",
				Help:        "Work units processed, by kind, action and status",
				ConstLabels: labels,
			},
			[]string{"kind", "action", "status"},
		),
		unitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "dbextend_work_unit_duration_seconds",
				Help:        "Time spent executing a work unit's statements",
				ConstLabels: labels,
				Buckets:     prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"kind", "action"},
		),
		registry: registry,
	}
	registry.MustRegister(c.unitsTotal, c.unitDuration)
	return c
}

func (c *Collector) UnitExecuted(kind workunit.Kind, action string, d time.Duration) {
	c.unitsTotal.WithLabelValues(kind.String(), action, "executed").Inc()
	c.unitDuration.WithLabelValues(kind.String(), action).Observe(d.Seconds())
}

func (c *Collector) UnitSkipped(kind workunit.Kind, action string, _ error) {
	c.unitsTotal.WithLabelValues(kind.String(), action, "skipped").Inc()
}

func (c *Collector) UnitFailed(kind workunit.Kind, action string, _ error) {
	c.unitsTotal.WithLabelValues(kind.String(), action, "failed").Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the current values in the node exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

var _ workunit.Reporter = (*Collector)(nil)
