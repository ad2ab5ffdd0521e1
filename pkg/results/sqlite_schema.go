package results

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the run table. Times are stored as Unix nanoseconds so that
// both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    policy_date TEXT NOT NULL,
    started INTEGER NOT NULL,
    duration INTEGER NOT NULL,
    status TEXT NOT NULL,
    rows INTEGER NOT NULL,
    partitions INTEGER NOT NULL,
    targets TEXT NOT NULL,
    registry_version TEXT,
    error TEXT,
    output BLOB
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const runColumns = `id, policy_date, started, duration, status, rows, partitions, targets, registry_version, error, output`
