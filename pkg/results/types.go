package results

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"mercator-hq/taxsim/pkg/dataset"
	"mercator-hq/taxsim/pkg/engine"
)

// Run is the record of one evaluation.
type Run struct {
	// ID is the engine's run ID, or a fresh UUID for runs that failed
	// before the engine assigned one.
	ID string

	PolicyDate time.Time
	Started    time.Time
	Duration   time.Duration

	// Status is "success" or the error class reported by engine.Status.
	Status string

	Rows       int
	Partitions int
	Targets    []string

	// RegistryVersion identifies the rule set the run was evaluated with.
	RegistryVersion string

	// Error is the error message of a failed run.
	Error string

	// Output is the result table as CSV. Empty unless requested.
	Output []byte
}

// Query filters runs. Zero fields match everything.
type Query struct {
	Since  *time.Time
	Until  *time.Time
	Status string

	// Limit caps the number of runs returned by List. 0 means 100.
	Limit  int
	Offset int
}

// DefaultLimit is the List page size when Query.Limit is 0.
const DefaultLimit = 100

// Store persists evaluation runs.
type Store interface {
	// Save inserts or replaces a run.
	Save(ctx context.Context, run *Run) error

	// Get returns the run with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns matching runs, newest first.
	List(ctx context.Context, query *Query) ([]*Run, error)

	// Count returns the number of matching runs.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteBefore removes runs started before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the oldest runs until at most keep remain.
	DeleteOldest(ctx context.Context, keep int64) (int64, error)

	Close() error
}

// NewRun builds the record of an evaluation from its request and outcome.
// With keepOutput the result table is stored as CSV.
func NewRun(req engine.Request, res *engine.Result, evalErr error, registryVersion string, keepOutput bool) (*Run, error) {
	run := &Run{
		PolicyDate:      req.Date,
		Status:          engine.Status(evalErr),
		Targets:         append([]string(nil), req.Targets...),
		RegistryVersion: registryVersion,
	}
	if req.Data != nil {
		run.Rows = req.Data.Len()
	}
	if evalErr != nil {
		run.ID = uuid.NewString()
		run.Started = time.Now()
		run.Error = evalErr.Error()
		return run, nil
	}

	run.ID = res.RunID
	run.Started = res.Started
	run.Duration = res.Duration
	run.Partitions = res.Partitions
	if keepOutput {
		var buf bytes.Buffer
		if err := dataset.WriteCSV(&buf, res.Table); err != nil {
			return nil, err
		}
		run.Output = buf.Bytes()
	}
	return run, nil
}

func (r *Run) clone() *Run {
	c := *r
	c.Targets = append([]string(nil), r.Targets...)
	c.Output = append([]byte(nil), r.Output...)
	return &c
}

func (q *Query) limit() int {
	if q == nil || q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q *Query) matches(r *Run) bool {
	if q == nil {
		return true
	}
	if q.Since != nil && r.Started.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.Started.After(*q.Until) {
		return false
	}
	return q.Status == "" || q.Status == r.Status
}
