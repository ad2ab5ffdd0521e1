package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEnginePartitions    = 1
	DefaultEnginePlanCacheSize = 64
	DefaultEngineMaxErrorRows  = 5

	// Parameter defaults
	DefaultParametersDir           = "./parameters"
	DefaultParametersWatchDebounce = 100 * time.Millisecond

	// Results defaults
	DefaultResultsBackend            = "sqlite"
	DefaultResultsSQLitePath         = "data/runs.db"
	DefaultResultsSQLiteDriver       = "sqlite"
	DefaultResultsSQLiteMaxOpenConns = 10
	DefaultResultsSQLiteMaxIdleConns = 5
	DefaultResultsSQLiteJournalMode  = "wal"
	DefaultResultsSQLiteBusyTimeout  = 5 * time.Second
	DefaultResultsRetentionDays      = 30
	DefaultResultsRetentionSchedule  = "0 3 * * *"
	DefaultResultsRetentionMaxRuns   = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "text"
	DefaultMetricsNamespace    = "taxsim"
	DefaultMetricsSubsystem    = "engine"
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingExporter     = "otlp"
	DefaultTracingServiceName  = "taxsim"
	DefaultTracingOTLPTimeout  = 10 * time.Second
)

// DefaultDurationBuckets are the evaluation duration histogram buckets.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// DefaultRuleDurationBuckets are the rule duration histogram buckets.
var DefaultRuleDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.Partitions == 0 {
		cfg.Engine.Partitions = DefaultEnginePartitions
	}
	if cfg.Engine.PlanCacheSize == 0 {
		cfg.Engine.PlanCacheSize = DefaultEnginePlanCacheSize
	}
	if cfg.Engine.MaxErrorRows == 0 {
		cfg.Engine.MaxErrorRows = DefaultEngineMaxErrorRows
	}

	// Parameter defaults
	if cfg.Parameters.Dir == "" {
		cfg.Parameters.Dir = DefaultParametersDir
	}
	if cfg.Parameters.WatchDebounce == 0 {
		cfg.Parameters.WatchDebounce = DefaultParametersWatchDebounce
	}

	// Results defaults
	if cfg.Results.Backend == "" {
		cfg.Results.Backend = DefaultResultsBackend
	}
	if cfg.Results.SQLite.Path == "" {
		cfg.Results.SQLite.Path = DefaultResultsSQLitePath
	}
	if cfg.Results.SQLite.Driver == "" {
		cfg.Results.SQLite.Driver = DefaultResultsSQLiteDriver
	}
	if cfg.Results.SQLite.MaxOpenConns == 0 {
		cfg.Results.SQLite.MaxOpenConns = DefaultResultsSQLiteMaxOpenConns
	}
	if cfg.Results.SQLite.MaxIdleConns == 0 {
		cfg.Results.SQLite.MaxIdleConns = DefaultResultsSQLiteMaxIdleConns
	}
	if cfg.Results.SQLite.JournalMode == "" {
		cfg.Results.SQLite.JournalMode = DefaultResultsSQLiteJournalMode
	}
	if cfg.Results.SQLite.BusyTimeout == 0 {
		cfg.Results.SQLite.BusyTimeout = DefaultResultsSQLiteBusyTimeout
	}
	if cfg.Results.Retention.Days == 0 {
		cfg.Results.Retention.Days = DefaultResultsRetentionDays
	}
	if cfg.Results.Retention.PruneSchedule == "" {
		cfg.Results.Retention.PruneSchedule = DefaultResultsRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if len(cfg.Telemetry.Metrics.RuleDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RuleDurationBuckets = append([]float64(nil), DefaultRuleDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
