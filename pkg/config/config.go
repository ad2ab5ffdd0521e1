package config

import "time"

// Config is the root configuration structure for taxsim.
// It contains the sections for the evaluation engine, the parameter store,
// the run store, and telemetry.
type Config struct {
	// Engine contains evaluation engine settings such as partitioning and
	// plan caching.
	Engine EngineConfig `yaml:"engine"`

	// Parameters contains the location of the parameter files and the
	// hot-reload settings.
	Parameters ParametersConfig `yaml:"parameters"`

	// Results contains configuration for storing evaluation runs including
	// backend selection and retention.
	Results ResultsConfig `yaml:"results"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains configuration for the evaluation engine.
type EngineConfig struct {
	// Partitions is the number of household partitions evaluated in
	// parallel. 1 evaluates sequentially.
	// Default: 1
	Partitions int `yaml:"partitions"`

	// PlanCacheSize is the number of resolved plans to keep.
	// Default: 64
	PlanCacheSize int `yaml:"plan_cache_size"`

	// MaxErrorRows is the number of offending rows reported in data errors.
	// Default: 5
	MaxErrorRows int `yaml:"max_error_rows"`

	// RuleTimeout is the maximum time a single rule may take. 0 disables
	// the limit.
	// Default: 0
	RuleTimeout time.Duration `yaml:"rule_timeout"`

	// ValidateRegistry rejects rule sets with gaps between variants at
	// startup.
	// Default: false
	ValidateRegistry bool `yaml:"validate_registry"`

	// PropagatePanics lets a panicking rule crash the process instead of
	// failing the evaluation.
	// Default: false
	PropagatePanics bool `yaml:"propagate_panics"`
}

// ParametersConfig contains configuration for the parameter store.
type ParametersConfig struct {
	// Dir is the directory holding the *.yaml parameter files.
	// Default: "./parameters"
	Dir string `yaml:"dir"`

	// Watch enables reloading the parameter files when they change.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period after a file change before the
	// files are reloaded.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// ResultsConfig contains configuration for the evaluation run store.
type ResultsConfig struct {
	// Enabled controls whether evaluation runs are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend for runs.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/runs.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode.
	// Options: "wal", "delete", "truncate", "memory"
	// Default: "wal"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain runs.
	// A negative value keeps runs forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRuns is the maximum number of runs to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRuns int64 `yaml:"max_runs"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "taxsim"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// TextfilePath is where metrics are written in the Prometheus text
	// format when a command finishes, for the node exporter textfile
	// collector. Empty disables the file.
	TextfilePath string `yaml:"textfile_path"`

	// DurationBuckets defines histogram buckets for evaluation duration (seconds).
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60]
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// RuleDurationBuckets defines histogram buckets for single rule duration (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	RuleDurationBuckets []float64 `yaml:"rule_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the trace collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "taxsim"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
