package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/table"
)

func TestArgs_DeclaredInputs(t *testing.T) {
	rule := &Rule{
		Name:    "net",
		Returns: table.KindFloat,
		Inputs: []Input{
			{Name: "wage", Kind: table.KindFloat},
			{Name: ParametersInput},
		},
	}
	set := params.NewSet(Date(2020, 1, 1), map[string]*params.Value{
		"g.rate": {Kind: params.ScalarValue, Scalar: 0.5},
	})
	cols := map[string]*table.Column{
		"wage": table.NewFloat("wage", []float64{100, 200}),
		"age":  table.NewInt("age", []int64{30, 40}),
	}
	a := NewArgs(rule, 2, cols, set, nil)

	assert.Equal(t, []float64{100, 200}, a.Float("wage"))
	assert.Equal(t, 0.5, a.ParamFloat("g.rate"))
	require.NoError(t, a.Err())

	out, err := a.Result(a.FloatResult([]float64{50, 100}))
	require.NoError(t, err)
	assert.Equal(t, "net", out.Name())
}

func TestArgs_UndeclaredInputIsSticky(t *testing.T) {
	rule := &Rule{Name: "net", Returns: table.KindFloat, Inputs: []Input{{Name: "wage", Kind: table.KindFloat}}}
	cols := map[string]*table.Column{
		"wage": table.NewFloat("wage", []float64{1, 2, 3}),
		"age":  table.NewInt("age", []int64{1, 2, 3}),
	}
	a := NewArgs(rule, 3, cols, nil, nil)

	ages := a.Int("age")
	assert.Len(t, ages, 3)
	var undeclared *UndeclaredInputError
	require.ErrorAs(t, a.Err(), &undeclared)
	assert.Equal(t, "age", undeclared.Input)

	// Later failures do not replace the first one.
	_ = a.ParamFloat("g.rate")
	require.ErrorAs(t, a.Err(), &undeclared)
	assert.Equal(t, "age", undeclared.Input)

	_, err := a.Result(a.FloatResult(make([]float64, 3)))
	assert.Error(t, err)
}

func TestArgs_KindMismatch(t *testing.T) {
	rule := &Rule{Name: "x", Returns: table.KindFloat, Inputs: []Input{{Name: "age", Kind: table.KindInt}}}
	cols := map[string]*table.Column{"age": table.NewInt("age", []int64{1})}
	a := NewArgs(rule, 1, cols, nil, nil)

	assert.Equal(t, []float64{0}, a.Float("age"))
	var kindErr *table.KindError
	require.ErrorAs(t, a.Err(), &kindErr)
}

func TestArgs_Index(t *testing.T) {
	h, err := entity.NewHierarchyFromKeys([]int64{1, 1, 2}, []int64{10, 10, 10})
	require.NoError(t, err)
	rule := &Rule{Name: "x", Returns: table.KindFloat}
	a := NewArgs(rule, 3, nil, nil, h)

	assert.Equal(t, 2, a.Index(entity.TaxUnit).Groups())
	assert.Equal(t, 1, a.Index(entity.Household).Groups())
	assert.Equal(t, 3, a.Index(entity.Individual).Groups())
	assert.NoError(t, a.Err())
}
