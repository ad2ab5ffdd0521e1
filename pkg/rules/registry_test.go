package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/table"
)

func constant(v float64) ComputeFunc {
	return func(a *Args) (*table.Column, error) {
		out := make([]float64, a.Rows())
		for i := range out {
			out[i] = v
		}
		return a.FloatResult(out), nil
	}
}

func variant(name string, from, until time.Time, v float64) *Rule {
	return &Rule{
		Name:       name,
		Inputs:     []Input{{Name: "wage", Kind: table.KindFloat}},
		Returns:    table.KindFloat,
		ValidFrom:  from,
		ValidUntil: until,
		Compute:    constant(v),
	}
}

func TestRegistry_SelectTemporalBoundary(t *testing.T) {
	reg := NewRegistry()
	first := variant("allowance", Date(2010, 1, 1), Date(2011, 1, 1), 1)
	second := variant("allowance", Date(2011, 1, 1), time.Time{}, 2)
	// Registration order must not matter for selection.
	require.NoError(t, reg.Register(second))
	require.NoError(t, reg.Register(first))

	tests := []struct {
		name     string
		date     time.Time
		wantFrom time.Time
	}{
		{name: "start of first", date: Date(2010, 1, 1), wantFrom: Date(2010, 1, 1)},
		{name: "last day of first", date: Date(2010, 12, 31), wantFrom: Date(2010, 1, 1)},
		{name: "first day of second", date: Date(2011, 1, 1), wantFrom: Date(2011, 1, 1)},
		{name: "far future", date: Date(2099, 6, 1), wantFrom: Date(2011, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := reg.Select("allowance", tt.date)
			require.NoError(t, err)
			assert.True(t, rule.ValidFrom.Equal(tt.wantFrom))
		})
	}
}

func TestRegistry_SelectUnknown(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(variant("assistance", Date(2005, 1, 1), time.Time{}, 1)))

	_, err := reg.Select("assistance", Date(1990, 1, 1))
	var unknown *UnknownRuleError
	require.ErrorAs(t, err, &unknown)
	assert.True(t, unknown.Registered)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = reg.Select("missing", Date(2020, 1, 1))
	require.ErrorAs(t, err, &unknown)
	assert.False(t, unknown.Registered)
}

func TestRegistry_RejectsOverlap(t *testing.T) {
	tests := []struct {
		name  string
		first *Rule
		next  *Rule
	}{
		{
			name:  "shared day",
			first: variant("x", Date(2010, 1, 1), Date(2011, 1, 2), 1),
			next:  variant("x", Date(2011, 1, 1), time.Time{}, 2),
		},
		{
			name:  "both unbounded",
			first: variant("x", time.Time{}, time.Time{}, 1),
			next:  variant("x", Date(2011, 1, 1), time.Time{}, 2),
		},
		{
			name:  "contained",
			first: variant("x", Date(2000, 1, 1), Date(2020, 1, 1), 1),
			next:  variant("x", Date(2005, 1, 1), Date(2006, 1, 1), 2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.Register(tt.first))
			version := reg.Version()

			err := reg.Register(tt.next)
			var ambiguous *AmbiguousRuleError
			require.ErrorAs(t, err, &ambiguous)
			assert.Equal(t, "x", ambiguous.Name)
			assert.Len(t, reg.Variants("x"), 1)
			assert.Equal(t, version, reg.Version())
		})
	}
}

func TestRegistry_ValidateReportsGaps(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(variant("x", Date(2000, 1, 1), Date(2005, 1, 1), 1)))
	require.NoError(t, reg.Register(variant("x", Date(2006, 1, 1), time.Time{}, 2)))
	require.NoError(t, reg.Register(variant("y", time.Time{}, time.Time{}, 3)))

	err := reg.Validate()
	var gap *IntervalGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "x", gap.Name)
	assert.True(t, gap.Gap.From.Equal(Date(2005, 1, 1)))
	assert.True(t, gap.Gap.Until.Equal(Date(2006, 1, 1)))
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRegistry_OrderAndVersion(t *testing.T) {
	reg := NewRegistry()
	empty := reg.Version()

	require.NoError(t, reg.RegisterAll(
		variant("b", time.Time{}, Date(2010, 1, 1), 1),
		variant("a", time.Time{}, time.Time{}, 1),
		variant("b", Date(2010, 1, 1), time.Time{}, 2),
	))

	assert.Equal(t, []string{"b", "a"}, reg.Names())
	assert.Equal(t, 0, reg.Order("b"))
	assert.Equal(t, 1, reg.Order("a"))
	assert.Equal(t, -1, reg.Order("c"))
	assert.NotEqual(t, empty, reg.Version())

	// Identical declarations produce identical versions.
	other := NewRegistry()
	require.NoError(t, other.RegisterAll(
		variant("b", time.Time{}, Date(2010, 1, 1), 1),
		variant("a", time.Time{}, time.Time{}, 1),
		variant("b", Date(2010, 1, 1), time.Time{}, 2),
	))
	assert.Equal(t, reg.Version(), other.Version())

	valid := reg.ValidAt(Date(2009, 1, 1))
	require.Len(t, valid, 2)
	assert.Equal(t, "b", valid[0].Name)
	assert.True(t, valid[0].ValidUntil.Equal(Date(2010, 1, 1)))
}

func TestRegistry_RejectsInvalidDeclarations(t *testing.T) {
	compute := constant(0)
	tests := []struct {
		name string
		rule *Rule
	}{
		{name: "nil", rule: nil},
		{name: "no name", rule: &Rule{Returns: table.KindFloat, Compute: compute}},
		{name: "reserved name", rule: &Rule{Name: ParametersInput, Returns: table.KindFloat, Compute: compute}},
		{name: "no return kind", rule: &Rule{Name: "x", Compute: compute}},
		{name: "self input", rule: &Rule{Name: "x", Returns: table.KindFloat, Compute: compute,
			Inputs: []Input{{Name: "x", Kind: table.KindFloat}}}},
		{name: "duplicate input", rule: &Rule{Name: "x", Returns: table.KindFloat, Compute: compute,
			Inputs: []Input{{Name: "a", Kind: table.KindFloat}, {Name: "a", Kind: table.KindFloat}}}},
		{name: "input without kind", rule: &Rule{Name: "x", Returns: table.KindFloat, Compute: compute,
			Inputs: []Input{{Name: "a"}}}},
		{name: "empty interval", rule: &Rule{Name: "x", Returns: table.KindFloat, Compute: compute,
			ValidFrom: Date(2010, 1, 1), ValidUntil: Date(2010, 1, 1)}},
		{name: "rounding on int", rule: &Rule{Name: "x", Returns: table.KindInt, Compute: compute,
			Rounding: &rounding.Spec{Base: 1, Direction: rounding.Down}}},
		{name: "aggregation at individual level", rule: &Rule{Name: "x", Returns: table.KindFloat,
			Aggregation: entity.Sum, Inputs: []Input{{Name: "a", Kind: table.KindFloat}}}},
		{name: "sum of bools must count", rule: &Rule{Name: "x", Returns: table.KindBool, Level: entity.TaxUnit,
			Aggregation: entity.Sum, Inputs: []Input{{Name: "a", Kind: table.KindBool}}}},
		{name: "any over floats", rule: &Rule{Name: "x", Returns: table.KindFloat, Level: entity.TaxUnit,
			Aggregation: entity.Any, Inputs: []Input{{Name: "a", Kind: table.KindFloat}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.rule)
			var ruleErr *RuleError
			require.ErrorAs(t, err, &ruleErr)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestRegistry_RegisterCopiesRule(t *testing.T) {
	reg := NewRegistry()
	rule := variant("x", time.Time{}, time.Time{}, 1)
	require.NoError(t, reg.Register(rule))

	rule.Inputs[0].Name = "changed"
	got, err := reg.Select("x", Date(2020, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "wage", got.Inputs[0].Name)
}

func TestInterval(t *testing.T) {
	iv := Interval{From: Date(2010, 1, 1), Until: Date(2011, 1, 1)}
	assert.True(t, iv.Contains(Date(2010, 1, 1)))
	assert.False(t, iv.Contains(Date(2011, 1, 1)))
	assert.False(t, iv.Contains(Date(2009, 12, 31)))
	assert.Equal(t, "[2010-01-01, 2011-01-01)", iv.String())
	assert.Equal(t, "[-inf, +inf)", Interval{}.String())

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.True(t, d.Equal(Date(2024, 2, 29)))
	_, err = ParseDate("29.02.2024")
	assert.Error(t, err)
}
