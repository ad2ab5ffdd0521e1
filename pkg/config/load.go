package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TAXSIM_SECTION_FIELD (e.g., TAXSIM_ENGINE_PARTITIONS).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format TAXSIM_SECTION_FIELD. Values that do
// not parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	envInt("TAXSIM_ENGINE_PARTITIONS", &cfg.Engine.Partitions)
	envInt("TAXSIM_ENGINE_PLAN_CACHE_SIZE", &cfg.Engine.PlanCacheSize)
	envInt("TAXSIM_ENGINE_MAX_ERROR_ROWS", &cfg.Engine.MaxErrorRows)
	envDuration("TAXSIM_ENGINE_RULE_TIMEOUT", &cfg.Engine.RuleTimeout)
	envBool("TAXSIM_ENGINE_VALIDATE_REGISTRY", &cfg.Engine.ValidateRegistry)

	// Parameter overrides
	envString("TAXSIM_PARAMETERS_DIR", &cfg.Parameters.Dir)
	envBool("TAXSIM_PARAMETERS_WATCH", &cfg.Parameters.Watch)

	// Results overrides
	envBool("TAXSIM_RESULTS_ENABLED", &cfg.Results.Enabled)
	envString("TAXSIM_RESULTS_BACKEND", &cfg.Results.Backend)
	envString("TAXSIM_RESULTS_SQLITE_PATH", &cfg.Results.SQLite.Path)
	envString("TAXSIM_RESULTS_SQLITE_DRIVER", &cfg.Results.SQLite.Driver)
	envInt("TAXSIM_RESULTS_RETENTION_DAYS", &cfg.Results.Retention.Days)
	if val := os.Getenv("TAXSIM_RESULTS_RETENTION_MAX_RUNS"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Results.Retention.MaxRuns = n
		}
	}
	envString("TAXSIM_RESULTS_RETENTION_PRUNE_SCHEDULE", &cfg.Results.Retention.PruneSchedule)

	// Telemetry overrides
	envString("TAXSIM_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TAXSIM_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TAXSIM_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TAXSIM_TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envBool("TAXSIM_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TAXSIM_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("TAXSIM_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
