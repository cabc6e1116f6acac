package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/makeroftools/perspective/pkg/accessor"
	"github.com/makeroftools/perspective/pkg/source"
)

func newSchemaCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [input]",
		Short: "Show each field and the logical type it materializes as",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd, args)
			if err != nil {
				return err
			}
			if _, err := initLogger(cfg); err != nil {
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

			return printSchema(os.Stdout, r.Format(), r.Schema())
		},
	}
}

func printSchema(w io.Writer, format source.Format, schema *arrow.Schema) error {
	fmt.Fprintf(w, "format: %s\n\n", format)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tARROW TYPE\tLOGICAL TYPE")
	for i, field := range schema.Fields() {
		logical := "unsupported"
		if lt, err := accessor.SupportedType(field); err == nil {
			logical = lt.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, field.Name, field.Type, logical)
	}
	return tw.Flush()
}
