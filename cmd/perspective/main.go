package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	_ "time/tzdata" // --timezone on hosts without a zone database

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/makeroftools/perspective/pkg/config"
)

var version = "0.1.0"

// replacer maps configuration keys to PERSPECTIVE_* variable names.
var replacer = strings.NewReplacer(".", "_", "-", "_")

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	v := viper.New()
	v.SetEnvPrefix("PERSPECTIVE")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "perspective",
		Short: "Materialize Arrow record batches into JSON",
		Long: `perspective decodes Arrow record batches column by column into plain values.
It reads Arrow IPC streams, Arrow IPC files and Parquet files, optionally
compressed with zstd or lz4, and writes the materialized columns as JSON.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("format", "", "Input format (auto, arrow-stream, arrow-file, parquet)")
	root.PersistentFlags().String("compression", "", "Input compression (auto, none, gzip, snappy, s2, zstd, lz4)")
	root.PersistentFlags().Int64("batch-size", 0, "Rows per record batch read from Parquet")
	bindFlags(v, root)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("perspective v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newConvertCmd(v))
	root.AddCommand(newSchemaCmd(v))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagKeys maps command line flags to configuration keys. The same keys,
// upper cased with dots as underscores and a PERSPECTIVE_ prefix, are read
// from the environment.
var flagKeys = map[string]string{
	"log-level":        "logging.level",
	"format":           "input.format",
	"compression":      "input.compression",
	"batch-size":       "input.batch_size",
	"output":           "output.path",
	"layout":           "output.layout",
	"pretty":           "output.pretty",
	"timezone":         "output.timezone",
	"metrics-textfile": "metrics.textfile",
	"trace":            "tracing.enabled",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range flagKeys {
		if f := cmd.PersistentFlags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		} else if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// loadConfig layers the YAML file named by --config, PERSPECTIVE_*
// variables and explicitly set flags over the defaults.
func loadConfig(v *viper.Viper, cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.Default()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("PERSPECTIVE_CONFIG")
	}
	if path != "" {
		if err := config.LoadInto(path, cfg); err != nil {
			return nil, err
		}
	}

	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("input.format") {
		cfg.Input.Format = v.GetString("input.format")
	}
	if v.IsSet("input.compression") {
		cfg.Input.Compression = v.GetString("input.compression")
	}
	if v.IsSet("input.batch_size") {
		cfg.Input.BatchSize = v.GetInt64("input.batch_size")
	}
	if v.IsSet("output.path") {
		cfg.Output.Path = v.GetString("output.path")
	}
	if v.IsSet("output.layout") {
		cfg.Output.Layout = v.GetString("output.layout")
	}
	if v.IsSet("output.pretty") {
		cfg.Output.Pretty = v.GetBool("output.pretty")
	}
	if v.IsSet("output.timezone") {
		cfg.Output.Timezone = v.GetString("output.timezone")
	}
	if v.IsSet("metrics.textfile") {
		cfg.Metrics.Textfile = v.GetString("metrics.textfile")
		cfg.Metrics.Enabled = cfg.Metrics.Textfile != ""
	}
	if v.IsSet("tracing.enabled") {
		cfg.Tracing.Enabled = v.GetBool("tracing.enabled")
	}

	if len(args) > 0 {
		cfg.Input.Path = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
