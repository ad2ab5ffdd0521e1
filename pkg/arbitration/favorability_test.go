package arbitration

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/taxsim/pkg/engine"
	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

func threeSchemes() []Scheme {
	return []Scheme{
		{Name: "allowance", NetTax: "net_allowance", Effects: map[string]string{"tax": "tax_allowance"}},
		{Name: "benefit", NetTax: "net_benefit", Effects: map[string]string{"tax": "tax_benefit", "benefit_paid": "benefit"}},
		{Name: "flat", NetTax: "net_flat", Effects: map[string]string{"tax": "tax_flat"}},
	}
}

func TestFavorability_ChoosesLowestNetTax(t *testing.T) {
	index := entity.NewGroupIndex([]int64{1, 1, 2})
	f := &Favorability{Name: "scheme", Level: entity.TaxUnit, Schemes: threeSchemes()}

	// unit 1: 100 / 80 / 120, unit 2: 10 / 20 / 5
	choice, err := f.Choose(index, [][]float64{
		{100, 0, 10},
		{80, 80, 20},
		{120, 120, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2}, choice)
}

func TestFavorability_WinnerIndependentOfOrder(t *testing.T) {
	index := entity.NewGroupIndex([]int64{1})
	taxes := map[string]float64{"a": 100, "b": 80, "c": 120}

	orders := [][]string{{"a", "b", "c"}, {"c", "b", "a"}, {"b", "a", "c"}, {"c", "a", "b"}}
	for _, order := range orders {
		var schemes []Scheme
		var cols [][]float64
		for _, name := range order {
			schemes = append(schemes, Scheme{Name: name, NetTax: "net_" + name})
			cols = append(cols, []float64{taxes[name]})
		}
		f := &Favorability{Name: "scheme", Level: entity.TaxUnit, Schemes: schemes}
		choice, err := f.Choose(index, cols)
		require.NoError(t, err)
		assert.Equal(t, "b", order[choice[0]], "order %v", order)
	}
}

func TestFavorability_TiesGoToFirstListed(t *testing.T) {
	index := entity.NewGroupIndex([]int64{1})
	f := &Favorability{Name: "scheme", Level: entity.TaxUnit, Schemes: threeSchemes()}

	// equal at cent precision despite float noise
	choice, err := f.Choose(index, [][]float64{{0.1 + 0.2}, {0.3}, {0.3000001}})
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, choice)
}

func TestFavorability_JointLiabilityUsesMemberMaximum(t *testing.T) {
	index := entity.NewGroupIndex([]int64{1, 1})
	f := &Favorability{Name: "scheme", Level: entity.TaxUnit, Schemes: threeSchemes()[:2]}

	choice, err := f.Choose(index, [][]float64{{10, 90}, {50, 50}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, choice)
}

func TestFavorability_NonFiniteNetTax(t *testing.T) {
	index := entity.NewGroupIndex([]int64{7})
	f := &Favorability{Name: "scheme", Level: entity.TaxUnit, Schemes: threeSchemes()}

	_, err := f.Choose(index, [][]float64{{1}, {math.NaN()}, {2}})
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, int64(7), ie.Group)
}

func TestFavorability_Validate(t *testing.T) {
	tests := []struct {
		name string
		f    Favorability
	}{
		{name: "no name", f: Favorability{Level: entity.TaxUnit, Schemes: threeSchemes()}},
		{name: "individual level", f: Favorability{Name: "s", Schemes: threeSchemes()}},
		{name: "no schemes", f: Favorability{Name: "s", Level: entity.TaxUnit}},
		{
			name: "undeclared output",
			f:    Favorability{Name: "s", Level: entity.TaxUnit, Schemes: threeSchemes()},
		},
		{
			name: "duplicate scheme",
			f: Favorability{Name: "s", Level: entity.TaxUnit, Schemes: []Scheme{
				{Name: "a", NetTax: "x"}, {Name: "a", NetTax: "y"},
			}},
		},
		{
			name: "output above check level",
			f: Favorability{Name: "s", Level: entity.TaxUnit, Schemes: []Scheme{{Name: "a", NetTax: "x"}},
				Outputs: []Output{{Name: "o", Level: entity.Household}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.f.Validate(), ErrInvalidDefinition)
		})
	}
}

func TestFavorability_RulesApplySideEffectsThroughEngine(t *testing.T) {
	f := &Favorability{
		Name:    "scheme",
		Level:   entity.TaxUnit,
		Schemes: threeSchemes(),
		Outputs: []Output{
			{Name: "tax", Level: entity.TaxUnit},
			{Name: "benefit_paid", Level: entity.Individual},
		},
	}
	generated, err := f.Rules()
	require.NoError(t, err)
	require.Len(t, generated, 3)

	reg := rules.NewRegistry()
	require.NoError(t, reg.RegisterAll(generated...))
	eng, err := engine.New(reg, nil, nil)
	require.NoError(t, err)

	col := func(name string, v ...float64) *table.Column { return table.NewFloat(name, v) }
	data, err := table.NewTable(
		table.NewInt(entity.TaxUnitKey, []int64{1, 1, 2}),
		table.NewInt(entity.HouseholdKey, []int64{1, 1, 2}),
		col("net_allowance", 100, 100, 10),
		col("net_benefit", 80, 80, 20),
		col("net_flat", 120, 120, 30),
		col("tax_allowance", 300, 300, 10),
		col("tax_benefit", 280, 280, 20),
		col("tax_flat", 320, 320, 30),
		col("benefit", 0, 219, 219),
	)
	require.NoError(t, err)

	res, err := eng.Evaluate(context.Background(), engine.Request{
		Targets: []string{"scheme", "tax", "benefit_paid"},
		Date:    rules.Date(2020, 1, 1),
		Data:    data,
	})
	require.NoError(t, err)

	scheme, _ := res.Table.Column("scheme")
	ints, _ := scheme.Ints()
	assert.Equal(t, []int64{1, 1, 0}, ints)

	tax, _ := res.Table.Column("tax")
	taxes, _ := tax.Floats()
	assert.Equal(t, []float64{280, 280, 10}, taxes)

	// the allowance scheme zeroes the benefit for every member of unit 2
	paid, _ := res.Table.Column("benefit_paid")
	benefits, _ := paid.Floats()
	assert.Equal(t, []float64{0, 219, 0}, benefits)
}
