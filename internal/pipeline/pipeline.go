// Package pipeline converts a stream of Arrow record batches into JSON.
//
// # Overview
//
// A Converter reads batches from a source.RecordReader on a background
// goroutine, materializes each one into Go values with the accessor
// package, and writes it with the json package. Every batch is counted in
// a metrics.Collector and traced in its own span.
//
// # Basic Usage
//
//	r, err := source.Open("trades.arrow", source.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	conv := pipeline.NewConverter(pipeline.DefaultConfig(), logger, collector)
//	stats, err := conv.Run(ctx, r, os.Stdout)
//
// # Failure
//
// A column whose type cannot be materialized is fatal. Run records the
// failure in its metrics and logs, then lets the *errors.Error panic
// continue to the caller, which decides whether to recover it.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/makeroftools/perspective/pkg/accessor"
	"github.com/makeroftools/perspective/pkg/errors"
	"github.com/makeroftools/perspective/pkg/json"
	"github.com/makeroftools/perspective/pkg/logger"
	"github.com/makeroftools/perspective/pkg/metrics"
	"github.com/makeroftools/perspective/pkg/observability"
	"github.com/makeroftools/perspective/pkg/source"
)

// Layout selects the JSON shape written per batch.
type Layout string

const (
	// LayoutColumns writes one column oriented document per batch
	LayoutColumns Layout = "columns"
	// LayoutRows writes one object per row
	LayoutRows Layout = "rows"
)

// Config controls a Converter.
type Config struct {
	Layout Layout
	Pretty bool
	// Location is the zone dates are materialized in; nil means time.Local
	Location *time.Location
	// Prefetch is the number of batches read ahead of materialization
	Prefetch int
}

// DefaultConfig returns the columns layout in the local zone.
func DefaultConfig() *Config {
	return &Config{
		Layout:   LayoutColumns,
		Location: time.Local,
		Prefetch: 2,
	}
}

// Stats summarizes a finished run.
type Stats struct {
	Batches  int
	Rows     int64
	Duration time.Duration
}

// Converter materializes record batches and writes them as JSON.
type Converter struct {
	config  *Config
	host    accessor.ValueHost
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewConverter creates a converter. A nil config uses DefaultConfig and a
// nil collector records into unregistered metrics.
func NewConverter(config *Config, log *zap.Logger, collector *metrics.Collector) *Converter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Prefetch < 0 {
		config.Prefetch = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector("perspective", nil)
	}

	return &Converter{
		config:  config,
		host:    accessor.NewValueHost(config.Location),
		logger:  log,
		metrics: collector,
	}
}

type batch struct {
	rec arrow.Record
	err error
}

// Run converts every batch of r into w and returns once r is exhausted,
// reading fails, writing fails or ctx is done.
func (c *Converter) Run(ctx context.Context, r source.RecordReader, w io.Writer) (Stats, error) {
	ctx, span := observability.NewSpan(ctx, "convert")
	defer span.End()
	span.SetAttribute("format", string(r.Format()))
	span.SetAttribute("layout", string(c.config.Layout))

	var stats Stats
	start := time.Now()
	log := c.logger.With(logger.Fields(ctx)...)

	log.Info("starting conversion",
		zap.String("format", string(r.Format())),
		zap.String("layout", string(c.config.Layout)),
		zap.Int("columns", r.Schema().NumFields()))

	ctx, cancel := context.WithCancel(ctx)
	batches := make(chan batch, c.config.Prefetch)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		c.readBatches(ctx, r, batches)
	}()

	defer func() {
		cancel()
		for b := range batches {
			if b.rec != nil {
				b.rec.Release()
			}
		}
		<-readerDone
	}()

	for b := range batches {
		if b.err != nil {
			span.RecordError(b.err)
			c.metrics.ObserveFailure(errorType(b.err))
			return stats, b.err
		}

		rows, err := c.convertBatch(ctx, stats.Batches, b.rec, w)
		if err != nil {
			span.RecordError(err)
			c.metrics.ObserveFailure(errorType(err))
			return stats, err
		}

		stats.Batches++
		stats.Rows += int64(rows)
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		c.metrics.ObserveFailure(errorType(err))
		return stats, err
	}

	stats.Duration = time.Since(start)
	span.SetAttribute("batches", stats.Batches)
	span.SetAttribute("rows", stats.Rows)

	log.Info("conversion completed",
		zap.Int("batches", stats.Batches),
		zap.Int64("rows", stats.Rows),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// readBatches feeds out until the reader is exhausted or fails.
func (c *Converter) readBatches(ctx context.Context, r source.RecordReader, out chan<- batch) {
	defer close(out)

	for {
		rec, err := r.Next(ctx)
		if err == io.EOF {
			c.logger.Debug("input exhausted")
			return
		}

		select {
		case out <- batch{rec: rec, err: err}:
		case <-ctx.Done():
			if rec != nil {
				rec.Release()
			}
			return
		}

		if err != nil {
			return
		}
	}
}

// convertBatch materializes and writes rec, then releases it.
func (c *Converter) convertBatch(ctx context.Context, seq int, rec arrow.Record, w io.Writer) (int, error) {
	defer rec.Release()

	ctx = context.WithValue(ctx, logger.BatchKey, seq)
	_, span := observability.NewSpan(ctx, "materialize_batch")
	defer span.End()
	span.SetAttribute("batch", seq)
	span.SetAttribute("rows", rec.NumRows())

	log := c.logger.With(logger.Fields(ctx)...)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			errType := string(errors.ErrorTypeInternal)
			if e, ok := r.(*errors.Error); ok {
				errType = string(e.Type)
				span.RecordError(e)
				log.Error("failed to materialize record batch",
					zap.String("error_type", errType),
					zap.Any("details", e.Details),
					zap.Error(e))
			} else {
				log.Error("failed to materialize record batch", zap.Any("panic", r))
			}
			c.metrics.ObserveFailure(errType)
			panic(r)
		}
	}()

	table := accessor.Materialize[[]any](rec, nil, c.host)
	c.metrics.ObserveBatch(table.NumRows, time.Since(start))
	for i, col := range table.Data {
		c.metrics.ObserveColumn(table.Types[i].String(), table.NumRows, countNulls(col))
	}

	var err error
	switch c.config.Layout {
	case LayoutRows:
		err = json.WriteRows(w, table)
	default:
		err = json.WriteColumns(w, table, c.config.Pretty)
	}
	if err != nil {
		return 0, err
	}

	log.Debug("record batch converted",
		zap.Int("rows", table.NumRows),
		zap.Duration("elapsed", time.Since(start)))

	return table.NumRows, nil
}

func countNulls(col []any) int {
	n := 0
	for _, v := range col {
		if v == nil {
			n++
		}
	}
	return n
}

func errorType(err error) string {
	if e, ok := errors.As(err); ok {
		return string(e.Type)
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return "canceled"
	}
	return string(errors.ErrorTypeInternal)
}
