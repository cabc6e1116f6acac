package config_test

import (
	"fmt"
	"log"

	"github.com/makeroftools/perspective/pkg/config"
)

// ExampleDefault demonstrates the default configuration.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Format: %s\n", cfg.Input.Format)
	fmt.Printf("Layout: %s\n", cfg.Output.Layout)
	fmt.Printf("Batch Size: %d\n", cfg.Input.BatchSize)

	// Output:
	// Format: auto
	// Layout: columns
	// Batch Size: 65536
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Output.Layout = "rows"
	cfg.Output.Timezone = "UTC"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")

	// Output:
	// Configuration is valid!
}
