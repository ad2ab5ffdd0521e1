package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/rules"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database at cfg.Path with cfg.Driver and creates
// the schema if needed.
func NewSQLiteStore(cfg *config.SQLiteConfig) (*SQLiteStore, error) {
	if cfg == nil {
		return nil, errors.New("sqlite config is nil")
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.DefaultResultsSQLiteDriver
	}

	logger := slog.Default().With("component", "results.sqlite")

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, storageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStore{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite run store initialized",
		"path", cfg.Path,
		"driver", driver,
		"journal_mode", cfg.JournalMode,
	)
	return s, nil
}

// initialize sets the pragmas and creates the schema.
func (s *SQLiteStore) initialize() error {
	if mode := s.config.JournalMode; mode != "" {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA journal_mode=%s;", strings.ToUpper(mode))); err != nil {
			return storageError("sqlite", "set_journal_mode", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return storageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return storageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return storageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return storageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return storageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Save inserts or replaces a run.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return storageError("sqlite", "save", errMissingID)
	}
	targets, err := json.Marshal(run.Targets)
	if err != nil {
		return storageError("sqlite", "save", err)
	}

	var errorVal, versionVal interface{}
	if run.Error != "" {
		errorVal = run.Error
	}
	if run.RegistryVersion != "" {
		versionVal = run.RegistryVersion
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.PolicyDate.Format(rules.DateLayout), run.Started.UnixNano(), int64(run.Duration),
		run.Status, run.Rows, run.Partitions, string(targets), versionVal, errorVal, run.Output,
	)
	if err != nil {
		return storageError("sqlite", "save", err)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, storageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageError("sqlite", "get", err)
		}
		return nil, ErrNotFound
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, storageError("sqlite", "scan", err)
	}
	return run, nil
}

// List returns matching runs, newest first.
func (s *SQLiteStore) List(ctx context.Context, query *Query) ([]*Run, error) {
	where, args := buildWhereClause(query)
	q := `SELECT ` + runColumns + ` FROM runs`
	if where != "" {
		q += " WHERE " + where
	}
	q += fmt.Sprintf(" ORDER BY started DESC, id DESC LIMIT %d", query.limit())
	if query != nil && query.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageError("sqlite", "list", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, storageError("sqlite", "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("sqlite", "list", err)
	}
	return runs, nil
}

// Count returns the number of matching runs.
func (s *SQLiteStore) Count(ctx context.Context, query *Query) (int64, error) {
	where, args := buildWhereClause(query)
	q := "SELECT COUNT(*) FROM runs"
	if where != "" {
		q += " WHERE " + where
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, storageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteBefore removes runs started before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started < ?", cutoff.UnixNano())
	if err != nil {
		return 0, storageError("sqlite", "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("sqlite", "delete", err)
	}
	return n, nil
}

// DeleteOldest removes the oldest runs until at most keep remain.
func (s *SQLiteStore) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id IN (
			SELECT id FROM runs ORDER BY started DESC, id DESC LIMIT -1 OFFSET ?
		)`, keep)
	if err != nil {
		return 0, storageError("sqlite", "delete_oldest", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("sqlite", "delete_oldest", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return storageError("sqlite", "close", err)
	}
	s.logger.Debug("SQLite run store closed")
	return nil
}

// buildWhereClause builds the WHERE clause (without the keyword) and its
// arguments from query.
func buildWhereClause(query *Query) (string, []interface{}) {
	if query == nil {
		return "", nil
	}
	var conditions []string
	var args []interface{}
	if query.Since != nil {
		conditions = append(conditions, "started >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "started <= ?")
		args = append(args, query.Until.UnixNano())
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}
	return strings.Join(conditions, " AND "), args
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		run                   Run
		policyDate, targets   string
		started, duration     int64
		version, errorMessage sql.NullString
		output                []byte
	)
	if err := rows.Scan(&run.ID, &policyDate, &started, &duration, &run.Status,
		&run.Rows, &run.Partitions, &targets, &version, &errorMessage, &output); err != nil {
		return nil, err
	}

	date, err := rules.ParseDate(policyDate)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(targets), &run.Targets); err != nil {
		return nil, err
	}
	run.PolicyDate = date
	run.Started = time.Unix(0, started)
	run.Duration = time.Duration(duration)
	run.RegistryVersion = version.String
	run.Error = errorMessage.String
	run.Output = output
	return &run, nil
}
