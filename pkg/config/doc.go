// Package config provides configuration management for taxsim.
//
// Configuration is loaded from a YAML file, completed with defaults,
// overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("taxsim.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TAXSIM_SECTION_FIELD.
// For example:
//
//   - TAXSIM_ENGINE_PARTITIONS overrides engine.partitions
//   - TAXSIM_PARAMETERS_DIR overrides parameters.dir
//   - TAXSIM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Values from the YAML file
//  2. Default values for fields the file leaves empty (defaults.go)
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation collects every problem into a ValidationError with one
// FieldError per field:
//
//	configuration validation failed with 2 errors:
//	  - engine.partitions: partitions must be at least 1
//	  - results.retention.prune_schedule: invalid cron expression: ...
//
// # Example Configuration
//
//	engine:
//	  partitions: 4
//
//	parameters:
//	  dir: "./parameters"
//	  watch: true
//
//	results:
//	  enabled: true
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/runs.db"
//	  retention:
//	    days: 30
//	    prune_schedule: "0 3 * * *"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
