// Package config provides configuration loading for perspective conversion runs.
//
// # Key Features
//
// - Config: one structure with logging, input, output, metrics and tracing sections
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from Default() and validation of enumerated settings
//
// # Usage
//
//	cfg, err := config.Load("perspective.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	loc, _ := cfg.Location()
//
// ## Environment Variable Substitution
//
//	output:
//	  path: ${OUTPUT_DIR}/trades.json
//	  timezone: ${TZ}
//
// Unset variables are replaced with the empty string, which selects the
// default for that setting where one exists.
package config
