package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/makeroftools/perspective/internal/pipeline"
	"github.com/makeroftools/perspective/pkg/config"
	"github.com/makeroftools/perspective/pkg/errors"
	"github.com/makeroftools/perspective/pkg/logger"
	"github.com/makeroftools/perspective/pkg/metrics"
	"github.com/makeroftools/perspective/pkg/observability"
	"github.com/makeroftools/perspective/pkg/source"
)

func newConvertCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [input]",
		Short: "Materialize record batches and write them as JSON",
		Long: `Read record batches from input (stdin when omitted or "-"), materialize every
column and write JSON to --output (stdout by default).

A column whose type cannot be materialized stops the run before anything is
written for its batch.

Example:
  perspective convert trades.arrow --layout rows --timezone America/New_York`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd, args)
			if err != nil {
				return err
			}
			return runConvert(cfg)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output path (stdout when empty or \"-\")")
	cmd.Flags().String("layout", "", "JSON layout (columns, rows)")
	cmd.Flags().Bool("pretty", false, "Indent the columns layout")
	cmd.Flags().String("timezone", "", "IANA zone dates are materialized in (default Local)")
	cmd.Flags().String("metrics-textfile", "", "Write prometheus metrics to this file when done")
	cmd.Flags().Bool("trace", false, "Export OpenTelemetry spans to stderr")
	bindFlags(v, cmd)

	return cmd
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return nil, err
	}
	return logger.Get(), nil
}

func inputName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}

func runConvert(cfg *config.Config) (err error) {
	base, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, logger.InputKey, inputName(cfg.Input.Path))
	log := logger.WithContext(ctx).With(zap.String("component", "perspective-cli"))

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			SamplingRate:   cfg.Tracing.SamplingRate,
			Output:         os.Stderr,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg)
	writeMetrics := func() {
		if !cfg.Metrics.Enabled || cfg.Metrics.Textfile == "" {
			return
		}
		if werr := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); werr != nil {
			log.Warn("failed to write metrics textfile", zap.Error(werr),
				zap.String("path", cfg.Metrics.Textfile))
		}
	}
	defer writeMetrics()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	r, err := source.Open(cfg.Input.Path, source.Options{
		Format:      source.Format(cfg.Input.Format),
		Compression: source.Compression(cfg.Input.Compression),
		BatchSize:   cfg.Input.BatchSize,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	out, closeOut, err := openOutput(cfg.Output.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	conv := pipeline.NewConverter(&pipeline.Config{
		Layout:   pipeline.Layout(cfg.Output.Layout),
		Pretty:   cfg.Output.Pretty,
		Location: loc,
		Prefetch: 2,
	}, base.Named("pipeline"), collector)

	stats, err := runGuarded(ctx, conv, r, out)
	if e, ok := errors.As(err); ok && e.Type == errors.ErrorTypeUnsupportedType {
		// Fatal exits without running deferred calls.
		_ = closeOut()
		writeMetrics()
		log.Fatal("cannot materialize input",
			zap.String("error_type", string(e.Type)),
			zap.Any("details", e.Details),
			zap.Error(e))
	}
	if err != nil {
		return err
	}

	log.Info("converted input",
		zap.Int("batches", stats.Batches),
		zap.Int64("rows", stats.Rows),
		zap.Duration("duration", stats.Duration))
	return nil
}

// runGuarded turns a materializer panic into an error so the command can
// report it. Other panics keep unwinding.
func runGuarded(ctx context.Context, conv *pipeline.Converter, r source.RecordReader, w io.Writer) (stats pipeline.Stats, err error) {
	defer func() {
		if p := recover(); p != nil {
			e, ok := p.(*errors.Error)
			if !ok {
				panic(p)
			}
			err = e
		}
	}()
	return conv.Run(ctx, r, w)
}

// openOutput returns a buffered writer for path ("-" or empty for stdout)
// and a function that flushes and closes it.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		bw := bufio.NewWriter(os.Stdout)
		return bw, bw.Flush, nil
	}

	f, err := os.Create(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").
			WithDetail("path", path)
	}
	bw := bufio.NewWriter(f)
	closed := false
	return bw, func() error {
		if closed {
			return nil
		}
		closed = true
		if err := bw.Flush(); err != nil {
			f.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush output")
		}
		return f.Close()
	}, nil
}
