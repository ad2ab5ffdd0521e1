package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/graph"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
	"mercator-hq/taxsim/pkg/tariff"
	"mercator-hq/taxsim/pkg/telemetry/logging"
	"mercator-hq/taxsim/pkg/telemetry/tracing"
)

// ParameterSource supplies the parameter snapshot of a policy date.
// Both *params.Store and *params.Provider satisfy it.
type ParameterSource interface {
	At(date time.Time) *params.Set
}

// Request describes one evaluation.
type Request struct {
	// Targets are the columns to compute.
	Targets []string

	// Date is the policy date selecting rule variants and parameters.
	Date time.Time

	// Data holds one row per individual, including the tax_unit_id and
	// household_id key columns.
	Data *table.Table

	// Debug returns every raw and computed column instead of only Targets.
	Debug bool

	// Partitions overrides Config.Partitions when positive.
	Partitions int

	// Progress, if set, is called with the row count of each partition as
	// it finishes. Calls may be concurrent.
	Progress func(rows int)
}

// Result is the outcome of a successful evaluation.
type Result struct {
	// RunID uniquely identifies the evaluation.
	RunID string

	// Date is the policy date of the request.
	Date time.Time

	// Table holds the requested columns in request order, or every column in
	// debug mode. It has the same rows in the same order as the input.
	Table *table.Table

	// Plan is the resolved evaluation plan.
	Plan *graph.Plan

	// Partitions is the number of partitions actually evaluated.
	Partitions int

	Started  time.Time
	Duration time.Duration
}

// Engine evaluates rule plans over columnar data.
//
// An Engine is safe for concurrent use. Each evaluation reads its own
// parameter snapshot, so a parameter reload never affects a running
// evaluation.
type Engine struct {
	registry *rules.Registry
	resolver *graph.Resolver
	params   ParameterSource
	config   *Config
	recorder Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the measurement recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithTracer sets the tracer used for evaluation and rule spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine over registry. source may be nil when no rule reads
// parameters. A nil cfg uses DefaultConfig.
func New(registry *rules.Registry, source ParameterSource, cfg *Config, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is nil", ErrInvalidConfig)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ValidateRegistry {
		if err := registry.Validate(); err != nil {
			return nil, err
		}
	}

	var resolverOpts []graph.Option
	if cfg.PlanCacheSize > 0 {
		resolverOpts = append(resolverOpts, graph.WithCache(graph.NewPlanCache(cfg.PlanCacheSize)))
	}

	e := &Engine{
		registry: registry,
		resolver: graph.NewResolver(registry, resolverOpts...),
		params:   source,
		config:   cfg,
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracing.InstrumentationName),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e, nil
}

// Registry returns the rule registry.
func (e *Engine) Registry() *rules.Registry { return e.registry }

// Resolver returns the dependency resolver.
func (e *Engine) Resolver() *graph.Resolver { return e.resolver }

// Plan resolves targets against a schema without evaluating anything.
func (e *Engine) Plan(targets []string, date time.Time, schema map[string]table.Kind) (*graph.Plan, error) {
	p, hit, err := e.resolver.ResolveCached(targets, date, schema)
	if err == nil && e.resolver.Cache() != nil {
		e.recorder.RecordPlanCache(hit)
	}
	return p, err
}

// Evaluate computes the requested target columns.
//
// Configuration problems (unknown or ambiguous rules, unresolved inputs,
// cycles) are reported before any row is processed. A failing rule aborts the
// whole evaluation; no partial result is returned.
func (e *Engine) Evaluate(ctx context.Context, req Request) (res *Result, err error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	rows := 0
	if req.Data != nil {
		rows = req.Data.Len()
	}

	ctx, span := e.tracer.Start(ctx, "engine.Evaluate",
		trace.WithAttributes(tracing.EvaluationAttributes(runID, req.Date, rows, req.Targets)...))
	defer func() {
		elapsed := time.Since(started)
		status := Status(err)
		e.recorder.RecordEvaluation(status, rows, elapsed)
		tracing.EndSpan(span, err)
		if err != nil {
			e.logger.WarnContext(ctx, "evaluation failed", "status", status, "duration", elapsed, "error", err)
		}
	}()

	if req.Data == nil {
		return nil, fmt.Errorf("%w: no data", ErrInvalidRequest)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: no policy date", ErrInvalidRequest)
	}

	h, err := entity.NewHierarchy(req.Data)
	if err != nil {
		return nil, &DataError{Message: "invalid group keys", Cause: err}
	}

	plan, err := e.Plan(req.Targets, req.Date, req.Data.Schema())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.PlanAttributes(plan.Key, len(plan.Order))...)

	if err := e.checkRoots(plan, req.Data); err != nil {
		return nil, err
	}

	var set *params.Set
	if plan.Parameters {
		if e.params == nil {
			return nil, ErrNoParameters
		}
		set = e.params.At(req.Date)
	}

	n := req.Partitions
	if n <= 0 {
		n = e.config.Partitions
	}

	var out *table.Table
	var parts [][]int
	if n > 1 {
		parts = h.PartitionByHousehold(n)
	}
	if len(parts) > 1 {
		out, err = e.executeParallel(ctx, plan, req.Data, parts, set, req.Progress)
	} else {
		out, err = e.execute(ctx, plan, req.Data, h, set, nil)
		parts = [][]int{nil}
		if err == nil && req.Progress != nil {
			req.Progress(rows)
		}
	}
	if err != nil {
		return nil, err
	}

	names := dedupeOrdered(req.Targets)
	if req.Debug {
		names = out.Names()
	}
	final, err := out.Select(names...)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:      runID,
		Date:       req.Date,
		Table:      final,
		Plan:       plan,
		Partitions: len(parts),
		Started:    started,
		Duration:   time.Since(started),
	}
	e.logger.InfoContext(ctx, "evaluation completed",
		"date", req.Date.Format(rules.DateLayout),
		"rows", rows,
		"rules", len(plan.Order),
		"partitions", res.Partitions,
		"duration", res.Duration)
	return res, nil
}

// executeParallel evaluates each household partition in its own goroutine
// and scatters the partition results back into the original row order.
func (e *Engine) executeParallel(ctx context.Context, plan *graph.Plan, data *table.Table, parts [][]int, set *params.Set, progress func(int)) (*table.Table, error) {
	outs := make([]*table.Table, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, rows := range parts {
		g.Go(func() error {
			sub := data.Take(rows)
			h, err := entity.NewHierarchy(sub)
			if err != nil {
				return &DataError{Message: "invalid group keys", Cause: err}
			}
			out, err := e.execute(gctx, plan, sub, h, set, rows)
			if err != nil {
				return err
			}
			outs[i] = out
			if progress != nil {
				progress(len(rows))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table.Scatter(data.Len(), outs, parts)
}

// execute runs the plan over one table. origin maps local rows to request
// rows for error reporting; nil means identity.
func (e *Engine) execute(ctx context.Context, plan *graph.Plan, data *table.Table, h *entity.Hierarchy, set *params.Set, origin []int) (*table.Table, error) {
	work, err := data.Select(data.Names()...)
	if err != nil {
		return nil, err
	}

	for _, rule := range plan.Order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col, err := e.runRule(ctx, plan, rule, work, h, set)
		if err != nil {
			var de *DataError
			if errors.As(err, &de) && origin != nil {
				for i, r := range de.Rows {
					de.Rows[i] = origin[r]
				}
			}
			return nil, err
		}
		if err := work.Add(col); err != nil {
			return nil, &EvaluationError{Rule: rule.Name, Message: "cannot store output", Cause: err}
		}
	}
	return work, nil
}

func (e *Engine) runRule(ctx context.Context, plan *graph.Plan, rule *rules.Rule, work *table.Table, h *entity.Hierarchy, set *params.Set) (col *table.Column, err error) {
	_, span := e.tracer.Start(ctx, "engine.rule",
		trace.WithAttributes(tracing.RuleAttributes(rule.Name, rule.Level.String(), work.Len())...))
	started := time.Now()
	defer func() {
		elapsed := time.Since(started)
		e.recorder.RecordRule(rule.Name, elapsed)
		if err == nil && e.config.RuleTimeout > 0 && elapsed > e.config.RuleTimeout {
			err = &TimeoutError{Rule: rule.Name, Timeout: e.config.RuleTimeout, Elapsed: elapsed}
		}
		tracing.EndSpan(span, err)
	}()

	inputs, err := e.gatherInputs(plan, rule, work, h)
	if err != nil {
		return nil, err
	}

	if rule.IsAggregation() {
		in := rule.Dependencies()[0]
		col = inputs[in.Name].Named(rule.Name)
	} else {
		col, err = e.compute(rule, work.Len(), inputs, set, h)
		if err != nil {
			return nil, err
		}
	}

	if err := e.checkOutput(rule, col, work.Len(), h); err != nil {
		return nil, err
	}
	if rule.Rounding != nil && col.Kind() == table.KindFloat {
		vals, _ := col.Floats()
		rounded := append([]float64(nil), vals...)
		rule.Rounding.ApplyAll(rounded)
		col = table.NewFloat(rule.Name, rounded)
	}
	e.logger.DebugContext(ctx, "rule evaluated", "rule", rule.Name, "rows", work.Len())
	return col, nil
}

// gatherInputs collects the declared input columns, pooled to the rule's
// level where they are defined below it.
func (e *Engine) gatherInputs(plan *graph.Plan, rule *rules.Rule, work *table.Table, h *entity.Hierarchy) (map[string]*table.Column, error) {
	deps := rule.Dependencies()
	inputs := make(map[string]*table.Column, len(deps))
	for _, in := range deps {
		c, ok := work.Column(in.Name)
		if !ok {
			return nil, &EvaluationError{Rule: rule.Name, Message: "input not computed", Cause: &table.MissingColumnError{Column: in.Name}}
		}
		if rule.Level > entity.Individual && rule.Aggregation != entity.None {
			from := entity.Individual
			if producer, ok := plan.Rule(in.Name); ok {
				from = producer.Level
			}
			if from < rule.Level {
				pooled, err := pool(c, h, from, rule.Level, rule.Aggregation, rule.IsAggregation())
				if err != nil {
					return nil, &EvaluationError{Rule: rule.Name, Message: fmt.Sprintf("cannot pool input %q", in.Name), Cause: err}
				}
				c = pooled
			}
		}
		inputs[in.Name] = c
	}
	return inputs, nil
}

// pool aggregates c, defined at level from, to the groups of level to.
// Sums count every group of level from once. A Sum over Bool yields an Int
// count when countBools is set and pools to Any otherwise, so a computed
// rule still reads the Bool input it declared.
func pool(c *table.Column, h *entity.Hierarchy, from, to entity.Level, op entity.Op, countBools bool) (*table.Column, error) {
	idx := h.Index(to)
	var rep []bool
	if op == entity.Sum && from > entity.Individual {
		rep = h.Index(from).Representatives()
	}

	switch c.Kind() {
	case table.KindFloat:
		vals, _ := c.Floats()
		if rep != nil {
			masked := make([]float64, len(vals))
			for i, v := range vals {
				if rep[i] {
					masked[i] = v
				}
			}
			vals = masked
		}
		out, err := idx.AggregateFloat(vals, numericOp(op))
		if err != nil {
			return nil, err
		}
		return table.NewFloat(c.Name(), out), nil

	case table.KindInt:
		vals, _ := c.Ints()
		if rep != nil {
			masked := make([]int64, len(vals))
			for i, v := range vals {
				if rep[i] {
					masked[i] = v
				}
			}
			vals = masked
		}
		out, err := idx.AggregateInt(vals, numericOp(op))
		if err != nil {
			return nil, err
		}
		return table.NewInt(c.Name(), out), nil

	case table.KindBool:
		vals, _ := c.Bools()
		if op == entity.Sum && countBools {
			if rep != nil {
				masked := make([]bool, len(vals))
				for i, v := range vals {
					masked[i] = v && rep[i]
				}
				vals = masked
			}
			out, err := idx.CountTrue(vals)
			if err != nil {
				return nil, err
			}
			return table.NewInt(c.Name(), out), nil
		}
		out, err := idx.AggregateBool(vals, logicalOp(op))
		if err != nil {
			return nil, err
		}
		return table.NewBool(c.Name(), out), nil
	}
	return nil, fmt.Errorf("%s column cannot be pooled", c.Kind())
}

// numericOp maps logical operators onto numeric vectors: Any is Max, All is Min.
func numericOp(op entity.Op) entity.Op {
	switch op {
	case entity.Any:
		return entity.Max
	case entity.All:
		return entity.Min
	}
	return op
}

// logicalOp maps numeric operators onto bool vectors.
func logicalOp(op entity.Op) entity.Op {
	switch op {
	case entity.Sum, entity.Max:
		return entity.Any
	case entity.Min:
		return entity.All
	}
	return op
}

func (e *Engine) compute(rule *rules.Rule, rows int, inputs map[string]*table.Column, set *params.Set, h *entity.Hierarchy) (col *table.Column, err error) {
	if e.config.RecoverPanics {
		defer func() {
			if r := recover(); r != nil {
				col = nil
				err = &EvaluationError{Rule: rule.Name, Message: fmt.Sprintf("panic: %v", r)}
			}
		}()
	}

	args := rules.NewArgs(rule, rows, inputs, set, h)
	col, err = rule.Compute(args)
	if err == nil {
		err = args.Err()
	}
	if err != nil {
		return nil, e.wrapComputeError(rule, err)
	}
	if col == nil {
		return nil, &EvaluationError{Rule: rule.Name, Message: "returned no column"}
	}
	if col.Name() != rule.Name {
		col = col.Named(rule.Name)
	}
	return col, nil
}

// wrapComputeError turns rule errors caused by the data into DataErrors.
func (e *Engine) wrapComputeError(rule *rules.Rule, err error) error {
	var de *DataError
	if errors.As(err, &de) {
		return err
	}
	var colErr *tariff.ColumnError
	if errors.As(err, &colErr) {
		rows, total := sample(colErr.Rows, e.config.MaxErrorRows)
		return &DataError{Rule: rule.Name, Column: colErr.Column, Rows: rows, Total: total, Message: "value outside the tariff domain", Cause: colErr.Cause}
	}
	return &EvaluationError{Rule: rule.Name, Cause: err}
}

// checkOutput enforces the declared kind and length, finite float values, and
// constancy within groups for rules above the individual level.
func (e *Engine) checkOutput(rule *rules.Rule, col *table.Column, rows int, h *entity.Hierarchy) error {
	if col.Kind() != rule.Returns {
		return &EvaluationError{Rule: rule.Name, Message: fmt.Sprintf("returned %s, declared %s", col.Kind(), rule.Returns)}
	}
	if col.Len() != rows {
		return &EvaluationError{Rule: rule.Name, Message: fmt.Sprintf("returned %d rows, want %d", col.Len(), rows)}
	}
	if err := e.checkFinite(rule.Name, col); err != nil {
		return err
	}
	if rule.Level == entity.Individual {
		return nil
	}

	idx := h.Index(rule.Level)
	var bad []int
	switch col.Kind() {
	case table.KindFloat:
		v, _ := col.Floats()
		bad = idx.NonConstantFloat(v)
	case table.KindInt:
		v, _ := col.Ints()
		bad = idx.NonConstantInt(v)
	case table.KindBool:
		v, _ := col.Bools()
		bad = idx.NonConstantBool(v)
	case table.KindOptionalFloat:
		v, present, _ := col.Optional()
		bad = idx.NonConstantBool(present)
		masked := make([]float64, len(v))
		for i := range v {
			if present[i] {
				masked[i] = v[i]
			}
		}
		bad = append(bad, idx.NonConstantFloat(masked)...)
	}
	if len(bad) > 0 {
		sampled, total := sample(bad, e.config.MaxErrorRows)
		return &DataError{
			Rule:    rule.Name,
			Column:  rule.Name,
			Rows:    sampled,
			Total:   total,
			Message: fmt.Sprintf("output is not constant within %s", rule.Level),
		}
	}
	return nil
}

// checkRoots verifies that every raw column read by the plan has the kind its
// readers declare and holds only finite numbers.
func (e *Engine) checkRoots(plan *graph.Plan, data *table.Table) error {
	for _, rule := range plan.Order {
		for _, in := range rule.Dependencies() {
			c, ok := data.Column(in.Name)
			if !ok {
				continue
			}
			if c.Kind() != in.Kind {
				return &DataError{
					Rule:    rule.Name,
					Column:  in.Name,
					Message: fmt.Sprintf("expected %s, got %s", in.Kind, c.Kind()),
				}
			}
			if err := e.checkFinite(rule.Name, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkFinite rejects NaN and infinite values in float columns. Absent
// optional values are not inspected.
func (e *Engine) checkFinite(rule string, c *table.Column) error {
	var bad []int
	switch c.Kind() {
	case table.KindFloat:
		v, _ := c.Floats()
		bad = nonFinite(v, nil)
	case table.KindOptionalFloat:
		v, present, _ := c.Optional()
		bad = nonFinite(v, present)
	}
	if len(bad) == 0 {
		return nil
	}
	sampled, total := sample(bad, e.config.MaxErrorRows)
	return &DataError{
		Rule:    rule,
		Column:  c.Name(),
		Rows:    sampled,
		Total:   total,
		Message: "value is not a finite number",
	}
}

func nonFinite(v []float64, present []bool) []int {
	var bad []int
	for i, x := range v {
		if present != nil && !present[i] {
			continue
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			bad = append(bad, i)
		}
	}
	return bad
}

// Status maps an evaluation error to its status class: "success", "config",
// "data", "rule" or "canceled".
func Status(err error) string {
	if err == nil {
		return "success"
	}
	var de *DataError
	var ee *EvaluationError
	var te *TimeoutError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &de):
		return "data"
	case errors.As(err, &ee), errors.As(err, &te):
		return "rule"
	default:
		return "config"
	}
}

func dedupeOrdered(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
