package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Check statuses.
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc performs a check of one component. It returns nil if the
// component is usable, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// CheckResult represents the result of a single check.
type CheckResult struct {
	Name string `json:"name"`

	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Required checks make the whole report unhealthy when they fail.
	Required bool `json:"required"`

	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of running all registered checks.
type Report struct {
	// Status is "ok", "degraded" when only optional checks failed, or
	// "unhealthy" when a required check failed.
	Status string `json:"status"`

	// Checks are sorted by name.
	Checks []CheckResult `json:"checks"`

	Timestamp time.Time `json:"timestamp"`
}

// Healthy reports whether every required check passed.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}

type registration struct {
	fn       CheckFunc
	required bool
}

// Checker runs the checks of the components a taxsim installation depends
// on: the parameter files, the rule registry and the run store.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]registration

	// Timeout for individual checks
	checkTimeout time.Duration
}

// ErrCheckTimeout is returned when a check does not finish in time.
var ErrCheckTimeout = errors.New("check timeout")

// New creates a checker with the specified per-check timeout.
// If timeout is 0, defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	return &Checker{
		checks:       make(map[string]registration),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers a required check. A check with the same name is
// replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.register(name, check, true)
}

// RegisterOptionalCheck registers a check whose failure only degrades the
// report.
func (c *Checker) RegisterOptionalCheck(name string, check CheckFunc) {
	c.register(name, check, false)
}

func (c *Checker) register(name string, check CheckFunc, required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = registration{fn: check, required: required}
}

// UnregisterCheck removes a check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.checks, name)
}

// Run performs all registered checks concurrently and aggregates them.
// With no checks registered the report is ok.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registration, len(c.checks))
	for name, reg := range c.checks {
		checks[name] = reg
	}
	c.mu.RUnlock()

	results := make([]CheckResult, 0, len(checks))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for name, reg := range checks {
		wg.Add(1)
		go func(name string, reg registration) {
			defer wg.Done()

			result := c.runCheck(ctx, reg.fn)
			result.Name = name
			result.Required = reg.required

			resultMu.Lock()
			results = append(results, result)
			resultMu.Unlock()
		}(name, reg)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := StatusOK
	for _, result := range results {
		if result.Status != StatusUnhealthy {
			continue
		}
		if result.Required {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}

	return Report{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now(),
	}
}

// runCheck executes a single check with timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	var err error
	select {
	case err = <-errChan:
	case <-checkCtx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// ListChecks returns the names of all registered checks, sorted.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// CheckCount returns the number of registered checks.
func (c *Checker) CheckCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.checks)
}
