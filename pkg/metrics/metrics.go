// Package metrics provides prometheus metrics for record batch
// materialization.
//
// # Overview
//
// A Collector counts batches, rows, cells and nulls per logical type, the
// time spent materializing each batch, and failures per error type. It is
// registered on a caller-provided registry so that tests and embedders do
// not share global state.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector("perspective", reg)
//
//	start := time.Now()
//	table := accessor.MaterializeValues(rec, time.Local)
//	collector.ObserveBatch(table.NumRows, time.Since(start))
//	for i := range table.Types {
//	    collector.ObserveColumn(table.Types[i].String(), table.NumRows, rec.Column(i).NullN())
//	}
//
//	// Persist for the node exporter textfile collector
//	_ = prometheus.WriteToTextfile("perspective.prom", reg)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector wraps the prometheus metrics of one conversion process.
type Collector struct {
	batches  prometheus.Counter
	rows     prometheus.Counter
	cells    *prometheus.CounterVec // by logical_type
	nulls    *prometheus.CounterVec // by logical_type
	failures *prometheus.CounterVec // by error_type
	duration prometheus.Histogram
}

// NewCollector creates the metrics under namespace and registers them on reg.
// A nil reg leaves the metrics unregistered.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Record batches materialized",
		}),
		rows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows materialized",
		}),
		cells: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_total",
			Help:      "Cells materialized by logical type",
		}, []string{"logical_type"}),
		nulls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nulls_total",
			Help:      "Null cells materialized by logical type",
		}, []string{"logical_type"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Batches that could not be materialized by error type",
		}, []string{"error_type"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "materialize_duration_seconds",
			Help:      "Time spent materializing one record batch",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs .. ~26s
		}),
	}
}

// ObserveBatch records one materialized batch.
func (c *Collector) ObserveBatch(rows int, elapsed time.Duration) {
	c.batches.Inc()
	c.rows.Add(float64(rows))
	c.duration.Observe(elapsed.Seconds())
}

// ObserveColumn records the cells of one materialized column.
func (c *Collector) ObserveColumn(logicalType string, rows, nulls int) {
	c.cells.WithLabelValues(logicalType).Add(float64(rows))
	c.nulls.WithLabelValues(logicalType).Add(float64(nulls))
}

// ObserveFailure records a batch that failed with errorType.
func (c *Collector) ObserveFailure(errorType string) {
	c.failures.WithLabelValues(errorType).Inc()
}
