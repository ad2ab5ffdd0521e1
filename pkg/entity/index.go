package entity

import (
	"fmt"
)

// GroupIndex maps rows to groups of a single grouping key.
//
// Groups are numbered densely in order of first appearance, so aggregation
// never reorders rows. The index is immutable after construction and safe for
// concurrent use.
type GroupIndex struct {
	keys     []int64
	rowGroup []int
	members  [][]int
}

// NewGroupIndex builds an index from a group-key vector.
func NewGroupIndex(keys []int64) *GroupIndex {
	byKey := make(map[int64]int)
	rowGroup := make([]int, len(keys))
	var members [][]int
	var groupKeys []int64

	for row, k := range keys {
		g, ok := byKey[k]
		if !ok {
			g = len(members)
			byKey[k] = g
			members = append(members, nil)
			groupKeys = append(groupKeys, k)
		}
		rowGroup[row] = g
		members[g] = append(members[g], row)
	}

	return &GroupIndex{
		keys:     groupKeys,
		rowGroup: rowGroup,
		members:  members,
	}
}

// Rows returns the number of rows indexed.
func (g *GroupIndex) Rows() int { return len(g.rowGroup) }

// Groups returns the number of groups.
func (g *GroupIndex) Groups() int { return len(g.members) }

// Group returns the dense group number of a row.
func (g *GroupIndex) Group(row int) int { return g.rowGroup[row] }

// Key returns the original key of a dense group number.
func (g *GroupIndex) Key(group int) int64 { return g.keys[group] }

// Members returns the rows of a group in row order. The slice must not be modified.
func (g *GroupIndex) Members(group int) []int { return g.members[group] }

func (g *GroupIndex) checkLen(op string, n int) error {
	if n != len(g.rowGroup) {
		return &LengthError{Operation: op, Want: len(g.rowGroup), Got: n}
	}
	return nil
}

// ReduceFloat computes one value per group.
func (g *GroupIndex) ReduceFloat(values []float64, op Op) ([]float64, error) {
	if err := g.checkLen("reduce", len(values)); err != nil {
		return nil, err
	}
	if !op.Numeric() {
		return nil, &OpError{Op: op, Kind: "float"}
	}

	out := make([]float64, len(g.members))
	for grp, rows := range g.members {
		if len(rows) == 0 {
			return nil, fmt.Errorf("group %d: %w", g.keys[grp], ErrEmptyGroup)
		}
		acc := values[rows[0]]
		for _, r := range rows[1:] {
			v := values[r]
			switch op {
			case Sum:
				acc += v
			case Max:
				if v > acc {
					acc = v
				}
			case Min:
				if v < acc {
					acc = v
				}
			}
		}
		out[grp] = acc
	}
	return out, nil
}

// ReduceInt computes one value per group.
func (g *GroupIndex) ReduceInt(values []int64, op Op) ([]int64, error) {
	if err := g.checkLen("reduce", len(values)); err != nil {
		return nil, err
	}
	if !op.Numeric() {
		return nil, &OpError{Op: op, Kind: "int"}
	}

	out := make([]int64, len(g.members))
	for grp, rows := range g.members {
		if len(rows) == 0 {
			return nil, fmt.Errorf("group %d: %w", g.keys[grp], ErrEmptyGroup)
		}
		acc := values[rows[0]]
		for _, r := range rows[1:] {
			v := values[r]
			switch op {
			case Sum:
				acc += v
			case Max:
				acc = max(acc, v)
			case Min:
				acc = min(acc, v)
			}
		}
		out[grp] = acc
	}
	return out, nil
}

// ReduceBool computes one value per group. Sum is not defined for bools; use CountTrue.
func (g *GroupIndex) ReduceBool(values []bool, op Op) ([]bool, error) {
	if err := g.checkLen("reduce", len(values)); err != nil {
		return nil, err
	}

	out := make([]bool, len(g.members))
	for grp, rows := range g.members {
		if len(rows) == 0 {
			return nil, fmt.Errorf("group %d: %w", g.keys[grp], ErrEmptyGroup)
		}
		switch op {
		case Any, Max:
			acc := false
			for _, r := range rows {
				acc = acc || values[r]
			}
			out[grp] = acc
		case All, Min:
			acc := true
			for _, r := range rows {
				acc = acc && values[r]
			}
			out[grp] = acc
		default:
			return nil, &OpError{Op: op, Kind: "bool"}
		}
	}
	return out, nil
}

// BroadcastFloat writes each group's value back to every member row.
func (g *GroupIndex) BroadcastFloat(perGroup []float64) ([]float64, error) {
	if len(perGroup) != len(g.members) {
		return nil, &LengthError{Operation: "broadcast", Want: len(g.members), Got: len(perGroup)}
	}
	out := make([]float64, len(g.rowGroup))
	for row, grp := range g.rowGroup {
		out[row] = perGroup[grp]
	}
	return out, nil
}

// BroadcastInt writes each group's value back to every member row.
func (g *GroupIndex) BroadcastInt(perGroup []int64) ([]int64, error) {
	if len(perGroup) != len(g.members) {
		return nil, &LengthError{Operation: "broadcast", Want: len(g.members), Got: len(perGroup)}
	}
	out := make([]int64, len(g.rowGroup))
	for row, grp := range g.rowGroup {
		out[row] = perGroup[grp]
	}
	return out, nil
}

// BroadcastBool writes each group's value back to every member row.
func (g *GroupIndex) BroadcastBool(perGroup []bool) ([]bool, error) {
	if len(perGroup) != len(g.members) {
		return nil, &LengthError{Operation: "broadcast", Want: len(g.members), Got: len(perGroup)}
	}
	out := make([]bool, len(g.rowGroup))
	for row, grp := range g.rowGroup {
		out[row] = perGroup[grp]
	}
	return out, nil
}

// AggregateFloat reduces per group and broadcasts the result back, so the
// output has one value per input row in the input's row order.
func (g *GroupIndex) AggregateFloat(values []float64, op Op) ([]float64, error) {
	per, err := g.ReduceFloat(values, op)
	if err != nil {
		return nil, err
	}
	return g.BroadcastFloat(per)
}

// AggregateInt reduces per group and broadcasts the result back.
func (g *GroupIndex) AggregateInt(values []int64, op Op) ([]int64, error) {
	per, err := g.ReduceInt(values, op)
	if err != nil {
		return nil, err
	}
	return g.BroadcastInt(per)
}

// AggregateBool reduces per group and broadcasts the result back.
func (g *GroupIndex) AggregateBool(values []bool, op Op) ([]bool, error) {
	per, err := g.ReduceBool(values, op)
	if err != nil {
		return nil, err
	}
	return g.BroadcastBool(per)
}

// CountTrue returns, for every row, the number of true values in its group.
func (g *GroupIndex) CountTrue(values []bool) ([]int64, error) {
	if err := g.checkLen("count", len(values)); err != nil {
		return nil, err
	}
	per := make([]int64, len(g.members))
	for row, grp := range g.rowGroup {
		if values[row] {
			per[grp]++
		}
	}
	return g.BroadcastInt(per)
}

// Rank returns the 1-based position of each masked row among the masked rows of
// its group, in row order. Rows outside the mask get 0.
func (g *GroupIndex) Rank(mask []bool) ([]int64, error) {
	if err := g.checkLen("rank", len(mask)); err != nil {
		return nil, err
	}
	out := make([]int64, len(mask))
	for _, rows := range g.members {
		var n int64
		for _, r := range rows {
			if mask[r] {
				n++
				out[r] = n
			}
		}
	}
	return out, nil
}

// NonConstantFloat returns the rows whose value differs from the first member
// of their group. An empty result means the vector is constant within groups.
func (g *GroupIndex) NonConstantFloat(values []float64) []int {
	var bad []int
	for _, rows := range g.members {
		for _, r := range rows[1:] {
			if values[r] != values[rows[0]] {
				bad = append(bad, r)
			}
		}
	}
	return bad
}

// NonConstantInt is NonConstantFloat for int vectors.
func (g *GroupIndex) NonConstantInt(values []int64) []int {
	var bad []int
	for _, rows := range g.members {
		for _, r := range rows[1:] {
			if values[r] != values[rows[0]] {
				bad = append(bad, r)
			}
		}
	}
	return bad
}

// NonConstantBool is NonConstantFloat for bool vectors.
func (g *GroupIndex) NonConstantBool(values []bool) []int {
	var bad []int
	for _, rows := range g.members {
		for _, r := range rows[1:] {
			if values[r] != values[rows[0]] {
				bad = append(bad, r)
			}
		}
	}
	return bad
}

// Representatives marks the first member row of every group. Summing a
// group-level vector over a coarser grouping counts each group once when the
// other rows are masked out.
func (g *GroupIndex) Representatives() []bool {
	out := make([]bool, len(g.rowGroup))
	for _, rows := range g.members {
		if len(rows) > 0 {
			out[rows[0]] = true
		}
	}
	return out
}
