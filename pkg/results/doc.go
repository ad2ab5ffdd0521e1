// Package results stores the metadata and output of evaluation runs.
//
// A Run records what was evaluated (policy date, targets, registry
// version), how it ended (status class and error message) and, when
// requested, the output table as CSV. Two backends implement Store:
//
//   - MemoryStore keeps runs in a map and is meant for tests and one-off
//     command invocations.
//   - SQLiteStore persists runs through database/sql with either the pure Go
//     modernc.org/sqlite driver ("sqlite") or mattn/go-sqlite3 ("sqlite3").
//
// The retention subpackage prunes old runs, once or on a cron schedule.
package results
