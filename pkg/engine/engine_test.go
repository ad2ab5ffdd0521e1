package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
	"mercator-hq/taxsim/pkg/tariff"
)

var day = rules.Date(2020, 1, 1)

const tariffYAML = `
income_tax:
  tariff:
    2020-01-01:
      thresholds: [0, 1000, .inf]
      rates: [0, 0.3333]
`

func floatIn(names ...string) []rules.Input {
	in := make([]rules.Input, 0, len(names))
	for _, n := range names {
		in = append(in, rules.Input{Name: n, Kind: table.KindFloat})
	}
	return in
}

// testRules builds a small chain: gross per person, unit income pooled to the
// tax unit, and a rounded tariff on the unit income.
func testRules() []*rules.Rule {
	return []*rules.Rule{
		{
			Name:    "gross",
			Inputs:  floatIn("wage"),
			Returns: table.KindFloat,
			Compute: func(a *rules.Args) (*table.Column, error) {
				wage := a.Float("wage")
				out := make([]float64, len(wage))
				copy(out, wage)
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:        "unit_income",
			Inputs:      floatIn("gross"),
			Returns:     table.KindFloat,
			Level:       entity.TaxUnit,
			Aggregation: entity.Sum,
		},
		{
			Name:     "tax",
			Inputs:   append(floatIn("unit_income"), rules.Input{Name: rules.ParametersInput}),
			Returns:  table.KindFloat,
			Level:    entity.TaxUnit,
			Rounding: &rounding.Spec{Base: 1, Direction: rounding.Down},
			Compute: func(a *rules.Args) (*table.Column, error) {
				income := a.Float("unit_income")
				s := a.ParamSchedule("income_tax.tariff")
				if err := a.Err(); err != nil {
					return nil, err
				}
				out, err := s.EvaluateColumn(income, 1)
				if err != nil {
					return nil, tariff.InColumn(err, "unit_income")
				}
				return a.FloatResult(out), nil
			},
		},
		{
			Name:        "earners",
			Inputs:      []rules.Input{{Name: "employed", Kind: table.KindBool}},
			Returns:     table.KindInt,
			Level:       entity.Household,
			Aggregation: entity.Sum,
		},
	}
}

func testData(t *testing.T, wages []float64, units, households []int64) *table.Table {
	t.Helper()
	employed := make([]bool, len(wages))
	for i, w := range wages {
		employed[i] = w > 0
	}
	tbl, err := table.NewTable(
		table.NewInt(entity.TaxUnitKey, units),
		table.NewInt(entity.HouseholdKey, households),
		table.NewFloat("wage", wages),
		table.NewBool("employed", employed),
	)
	require.NoError(t, err)
	return tbl
}

func newEngine(t *testing.T, cfg *Config, opts ...Option) *Engine {
	t.Helper()
	reg := rules.NewRegistry()
	require.NoError(t, reg.RegisterAll(testRules()...))
	store, err := params.Parse([]byte(tariffYAML), "tariff.yaml")
	require.NoError(t, err)
	eng, err := New(reg, store, cfg, opts...)
	require.NoError(t, err)
	return eng
}

func floats(t *testing.T, tbl *table.Table, name string) []float64 {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "missing column %q", name)
	v, err := c.Floats()
	require.NoError(t, err)
	return v
}

func TestEvaluate_ComputesTargets(t *testing.T) {
	eng := newEngine(t, nil)
	data := testData(t, []float64{1000, 500, 200}, []int64{1, 1, 2}, []int64{10, 10, 20})

	res, err := eng.Evaluate(context.Background(), Request{
		Targets: []string{"tax", "unit_income", "earners"},
		Date:    day,
		Data:    data,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tax", "unit_income", "earners"}, res.Table.Names())
	assert.Equal(t, []float64{1500, 1500, 200}, floats(t, res.Table, "unit_income"))
	// 500 * 0.3333 = 166.65, rounded down
	assert.Equal(t, []float64{166, 166, 0}, floats(t, res.Table, "tax"))

	earners, _ := res.Table.Column("earners")
	counts, err := earners.Ints()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2, 1}, counts)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Partitions)
	assert.Equal(t, []string{"gross", "unit_income", "tax", "earners"}, res.Plan.Names())
}

func TestEvaluate_Deterministic(t *testing.T) {
	eng := newEngine(t, nil)
	data := testData(t, []float64{1000, 500, 200, 3000}, []int64{1, 1, 2, 3}, []int64{10, 10, 20, 30})
	req := Request{Targets: []string{"tax"}, Date: day, Data: data}

	first, err := eng.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := eng.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, floats(t, first.Table, "tax"), floats(t, second.Table, "tax"))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEvaluate_ParallelMatchesSequential(t *testing.T) {
	wages := []float64{1200, 0, 800, 4000, 50, 2500, 900, 0, 1700}
	units := []int64{1, 1, 2, 3, 3, 4, 5, 6, 6}
	households := []int64{10, 10, 10, 20, 20, 30, 40, 50, 50}
	data := testData(t, wages, units, households)

	seq := newEngine(t, nil)
	par := newEngine(t, DefaultConfig().WithPartitions(3))

	req := Request{Targets: []string{"tax", "earners"}, Date: day, Data: data}
	want, err := seq.Evaluate(context.Background(), req)
	require.NoError(t, err)
	got, err := par.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Partitions)
	assert.Equal(t, floats(t, want.Table, "tax"), floats(t, got.Table, "tax"))
	wantEarners, _ := want.Table.Column("earners")
	gotEarners, _ := got.Table.Column("earners")
	assert.Equal(t, wantEarners.Value(0), gotEarners.Value(0))
	assert.Equal(t, wantEarners.Value(8), gotEarners.Value(8))
}

func TestEvaluate_ReportsProgressPerPartition(t *testing.T) {
	wages := []float64{1200, 0, 800, 4000, 50, 2500}
	units := []int64{1, 1, 2, 3, 3, 4}
	households := []int64{10, 10, 10, 20, 20, 30}
	data := testData(t, wages, units, households)

	for _, partitions := range []int{1, 3} {
		var mu sync.Mutex
		calls, rows := 0, 0
		req := Request{
			Targets:    []string{"tax"},
			Date:       day,
			Data:       data,
			Partitions: partitions,
			Progress: func(n int) {
				mu.Lock()
				defer mu.Unlock()
				calls++
				rows += n
			},
		}

		res, err := newEngine(t, nil).Evaluate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, res.Partitions, calls)
		assert.Equal(t, data.Len(), rows)
	}
}

func TestEvaluate_DebugReturnsAllColumns(t *testing.T) {
	eng := newEngine(t, nil)
	data := testData(t, []float64{100}, []int64{1}, []int64{1})

	res, err := eng.Evaluate(context.Background(), Request{Targets: []string{"tax"}, Date: day, Data: data, Debug: true})
	require.NoError(t, err)

	for _, name := range []string{"wage", "employed", "gross", "unit_income", "tax"} {
		assert.True(t, res.Table.Has(name), "debug output lacks %q", name)
	}
}

func TestEvaluate_RawKindMismatch(t *testing.T) {
	eng := newEngine(t, nil)
	data, err := table.NewTable(
		table.NewInt(entity.TaxUnitKey, []int64{1}),
		table.NewInt(entity.HouseholdKey, []int64{1}),
		table.NewInt("wage", []int64{100}),
	)
	require.NoError(t, err)

	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"gross"}, Date: day, Data: data})
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "wage", de.Column)
	assert.Equal(t, "gross", de.Rule)
}

func TestEvaluate_NegativeTariffBaseReportsRows(t *testing.T) {
	eng := newEngine(t, DefaultConfig().WithPartitions(2))
	data := testData(t, []float64{100, -50, 300, -10}, []int64{1, 2, 3, 4}, []int64{1, 2, 3, 4})

	_, err := eng.Evaluate(context.Background(), Request{Targets: []string{"tax"}, Date: day, Data: data})
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "tax", de.Rule)
	assert.Equal(t, "unit_income", de.Column)
	// households 2 and 4 land in different partitions; rows are reported in
	// request order
	assert.Contains(t, []int{1, 3}, de.Rows[0])
}

func TestEvaluate_NonConstantGroupOutput(t *testing.T) {
	reg := rules.NewRegistry()
	require.NoError(t, reg.Register(&rules.Rule{
		Name:    "bad",
		Inputs:  floatIn("wage"),
		Returns: table.KindFloat,
		Level:   entity.Household,
		Compute: func(a *rules.Args) (*table.Column, error) {
			return a.Result(a.FloatResult(a.Float("wage")))
		},
	}))
	eng, err := New(reg, nil, nil)
	require.NoError(t, err)

	data := testData(t, []float64{1, 2, 3}, []int64{1, 2, 3}, []int64{7, 7, 8})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"bad"}, Date: day, Data: data})

	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bad", de.Column)
	assert.Equal(t, []int{1}, de.Rows)
}

func TestEvaluate_NonFiniteOutputIsDataError(t *testing.T) {
	reg := rules.NewRegistry()
	require.NoError(t, reg.Register(&rules.Rule{
		Name:     "ratio",
		Inputs:   floatIn("wage"),
		Returns:  table.KindFloat,
		Rounding: &rounding.Spec{Base: 0.01, Direction: rounding.Nearest},
		Compute: func(a *rules.Args) (*table.Column, error) {
			wage := a.Float("wage")
			out := make([]float64, len(wage))
			for i, w := range wage {
				out[i] = 100 / w
			}
			return a.Result(a.FloatResult(out))
		},
	}))
	eng, err := New(reg, nil, nil)
	require.NoError(t, err)

	data := testData(t, []float64{50, 0, 25, 0}, []int64{1, 2, 3, 4}, []int64{1, 2, 3, 4})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"ratio"}, Date: day, Data: data})

	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ratio", de.Column)
	assert.Equal(t, []int{1, 3}, de.Rows)
	assert.Equal(t, 2, de.Total)
}

func TestEvaluate_ConfigurationErrorsBeforeExecution(t *testing.T) {
	called := false
	reg := rules.NewRegistry()
	require.NoError(t, reg.Register(&rules.Rule{
		Name:    "needs_missing",
		Inputs:  floatIn("nowhere"),
		Returns: table.KindFloat,
		Compute: func(a *rules.Args) (*table.Column, error) {
			called = true
			return a.FloatResult(make([]float64, a.Rows())), nil
		},
	}))
	eng, err := New(reg, nil, nil)
	require.NoError(t, err)

	data := testData(t, []float64{1}, []int64{1}, []int64{1})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"needs_missing"}, Date: day, Data: data})
	require.ErrorIs(t, err, rules.ErrConfiguration)
	assert.False(t, called)

	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"unknown"}, Date: day, Data: data})
	require.ErrorIs(t, err, rules.ErrConfiguration)
}

func TestEvaluate_InvalidRequests(t *testing.T) {
	eng := newEngine(t, nil)

	_, err := eng.Evaluate(context.Background(), Request{Targets: []string{"tax"}, Date: day})
	require.ErrorIs(t, err, ErrInvalidRequest)

	data := testData(t, []float64{1}, []int64{1}, []int64{1})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"tax"}, Data: data})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEvaluate_NoParameterSource(t *testing.T) {
	reg := rules.NewRegistry()
	require.NoError(t, reg.RegisterAll(testRules()...))
	eng, err := New(reg, nil, nil)
	require.NoError(t, err)

	data := testData(t, []float64{1}, []int64{1}, []int64{1})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"tax"}, Date: day, Data: data})
	require.ErrorIs(t, err, ErrNoParameters)

	// plans without parameters still run
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"unit_income"}, Date: day, Data: data})
	require.NoError(t, err)
}

func TestEvaluate_RecoversPanics(t *testing.T) {
	reg := rules.NewRegistry()
	require.NoError(t, reg.Register(&rules.Rule{
		Name:    "boom",
		Inputs:  floatIn("wage"),
		Returns: table.KindFloat,
		Compute: func(a *rules.Args) (*table.Column, error) {
			var v []float64
			v[3] = 1
			return a.FloatResult(v), nil
		},
	}))
	eng, err := New(reg, nil, nil)
	require.NoError(t, err)

	data := testData(t, []float64{1}, []int64{1}, []int64{1})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"boom"}, Date: day, Data: data})
	var ee *EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "boom", ee.Rule)
}

func TestEvaluate_Canceled(t *testing.T) {
	eng := newEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := testData(t, []float64{1}, []int64{1}, []int64{1})
	_, err := eng.Evaluate(ctx, Request{Targets: []string{"tax"}, Date: day, Data: data})
	require.ErrorIs(t, err, context.Canceled)
}

type fakeRecorder struct {
	mu          sync.Mutex
	evaluations []string
	rules       []string
	hits        int
	misses      int
}

func (f *fakeRecorder) RecordEvaluation(status string, rows int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations = append(f.evaluations, status)
}

func (f *fakeRecorder) RecordRule(rule string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule)
}

func (f *fakeRecorder) RecordPlanCache(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func TestEvaluate_RecordsMeasurements(t *testing.T) {
	rec := &fakeRecorder{}
	eng := newEngine(t, nil, WithRecorder(rec))
	data := testData(t, []float64{1000, -1}, []int64{1, 2}, []int64{1, 2})

	_, err := eng.Evaluate(context.Background(), Request{Targets: []string{"unit_income"}, Date: day, Data: data})
	require.NoError(t, err)
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"unit_income"}, Date: day, Data: data})
	require.NoError(t, err)
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"tax"}, Date: day, Data: data})
	require.Error(t, err)

	assert.Equal(t, []string{"success", "success", "data"}, rec.evaluations)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 2, rec.misses)
	assert.Contains(t, rec.rules, "gross")
}

func TestEvaluate_EmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer provider.Shutdown(context.Background())

	eng := newEngine(t, nil, WithTracer(provider.Tracer("test")))
	data := testData(t, []float64{1000}, []int64{1}, []int64{1})

	_, err := eng.Evaluate(context.Background(), Request{Targets: []string{"unit_income"}, Date: day, Data: data})
	require.NoError(t, err)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "engine.Evaluate")
	assert.Contains(t, names, "engine.rule")
	assert.Len(t, names, 3)
}

func TestEvaluate_RuleTimeout(t *testing.T) {
	reg := rules.NewRegistry()
	require.NoError(t, reg.Register(&rules.Rule{
		Name:    "slow",
		Inputs:  floatIn("wage"),
		Returns: table.KindFloat,
		Compute: func(a *rules.Args) (*table.Column, error) {
			time.Sleep(20 * time.Millisecond)
			return a.Result(a.FloatResult(a.Float("wage")))
		},
	}))
	eng, err := New(reg, nil, DefaultConfig().WithRuleTimeout(time.Millisecond))
	require.NoError(t, err)

	data := testData(t, []float64{1}, []int64{1}, []int64{1})
	_, err = eng.Evaluate(context.Background(), Request{Targets: []string{"slow"}, Date: day, Data: data})
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "slow", te.Rule)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, DefaultConfig().WithPartitions(-1).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, DefaultConfig().WithMaxErrorRows(-1).Validate(), ErrInvalidConfig)

	_, err := New(nil, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
