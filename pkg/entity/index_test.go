package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/taxsim/pkg/table"
)

func TestGroupIndex_AggregateFloat(t *testing.T) {
	keys := []int64{7, 3, 7, 9, 3, 7}
	values := []float64{1, 10, 2, 100, 20, 4}
	idx := NewGroupIndex(keys)

	tests := []struct {
		name string
		op   Op
		want []float64
	}{
		{name: "sum", op: Sum, want: []float64{7, 30, 7, 100, 30, 7}},
		{name: "max", op: Max, want: []float64{4, 20, 4, 100, 20, 4}},
		{name: "min", op: Min, want: []float64{1, 10, 1, 100, 10, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.AggregateFloat(values, tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupIndex_SumMatchesManualGroupSum(t *testing.T) {
	keys := []int64{1, 2, 1, 3, 2, 2, 1}
	values := []float64{0.5, 3, 1.25, 8, 2, 4, 10}
	idx := NewGroupIndex(keys)

	got, err := idx.AggregateFloat(values, Sum)
	require.NoError(t, err)

	for row := range values {
		var manual float64
		for r := range values {
			if keys[r] == keys[row] {
				manual += values[r]
			}
		}
		assert.InDelta(t, manual, got[row], 1e-12, "row %d", row)
	}
}

func TestGroupIndex_ChangeOneRowOnlyAffectsItsGroup(t *testing.T) {
	keys := []int64{1, 1, 2, 2, 3}
	before := []float64{1, 2, 3, 4, 5}
	after := []float64{1, 2, 3, 40, 5}
	idx := NewGroupIndex(keys)

	a, err := idx.AggregateFloat(before, Sum)
	require.NoError(t, err)
	b, err := idx.AggregateFloat(after, Sum)
	require.NoError(t, err)

	for row := range keys {
		if keys[row] == 2 {
			assert.NotEqual(t, a[row], b[row], "row %d should change", row)
		} else {
			assert.Equal(t, a[row], b[row], "row %d should not change", row)
		}
	}
}

func TestGroupIndex_Bool(t *testing.T) {
	idx := NewGroupIndex([]int64{1, 1, 2, 2})
	values := []bool{true, false, true, true}

	anyOut, err := idx.AggregateBool(values, Any)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true}, anyOut)

	allOut, err := idx.AggregateBool(values, All)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true}, allOut)

	_, err = idx.AggregateBool(values, Sum)
	var opErr *OpError
	assert.ErrorAs(t, err, &opErr)

	counts, err := idx.CountTrue(values)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2, 2}, counts)
}

func TestGroupIndex_Int(t *testing.T) {
	idx := NewGroupIndex([]int64{5, 6, 5})
	got, err := idx.AggregateInt([]int64{2, 9, 3}, Max)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9, 3}, got)

	_, err = idx.AggregateInt([]int64{1, 2}, Sum)
	var lenErr *LengthError
	assert.ErrorAs(t, err, &lenErr)
}

func TestGroupIndex_Rank(t *testing.T) {
	idx := NewGroupIndex([]int64{1, 1, 1, 2, 2})
	mask := []bool{false, true, true, true, false}

	got, err := idx.Rank(mask)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 1, 0}, got)
}

func TestGroupIndex_EmptyGroupIsError(t *testing.T) {
	idx := &GroupIndex{
		keys:     []int64{1, 2},
		rowGroup: []int{0},
		members:  [][]int{{0}, {}},
	}

	_, err := idx.ReduceFloat([]float64{1}, Sum)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyGroup))
}

func TestGroupIndex_PreservesRowOrder(t *testing.T) {
	idx := NewGroupIndex([]int64{30, 10, 20})
	got, err := idx.AggregateFloat([]float64{3, 1, 2}, Sum)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, got)
	assert.Equal(t, int64(30), idx.Key(0))
}

func TestGroupIndex_NonConstant(t *testing.T) {
	idx := NewGroupIndex([]int64{1, 1, 2, 2})
	assert.Empty(t, idx.NonConstantFloat([]float64{5, 5, 6, 6}))
	assert.Equal(t, []int{3}, idx.NonConstantFloat([]float64{5, 5, 6, 7}))
}

func TestHierarchy_Nesting(t *testing.T) {
	data, err := table.NewTable(
		table.NewInt(TaxUnitKey, []int64{1, 1, 2}),
		table.NewInt(HouseholdKey, []int64{10, 11, 11}),
	)
	require.NoError(t, err)

	_, err = NewHierarchy(data)
	var nestErr *NestingError
	require.ErrorAs(t, err, &nestErr)
	assert.Equal(t, int64(1), nestErr.TaxUnit)
	assert.Equal(t, []int64{10, 11}, nestErr.Households)
}

func TestHierarchy_MissingKey(t *testing.T) {
	data, err := table.NewTable(table.NewInt(TaxUnitKey, []int64{1}))
	require.NoError(t, err)

	_, err = NewHierarchy(data)
	var missing *table.MissingColumnError
	assert.ErrorAs(t, err, &missing)
}

func TestHierarchy_PartitionByHousehold(t *testing.T) {
	h, err := NewHierarchyFromKeys(
		[]int64{1, 1, 2, 3, 3, 4},
		[]int64{10, 10, 20, 30, 30, 40},
	)
	require.NoError(t, err)

	parts := h.PartitionByHousehold(2)
	require.Len(t, parts, 2)
	assert.Equal(t, []int{0, 1, 3, 4}, parts[0])
	assert.Equal(t, []int{2, 5}, parts[1])

	single := h.PartitionByHousehold(10)
	assert.Len(t, single, 4)

	idx := h.Index(Individual)
	assert.Equal(t, 6, idx.Groups())
}
