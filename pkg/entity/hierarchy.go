package entity

import (
	"fmt"
	"sort"

	"mercator-hq/taxsim/pkg/table"
)

// Hierarchy holds the group indexes of the three-level entity model.
type Hierarchy struct {
	rows      int
	taxUnit   *GroupIndex
	household *GroupIndex
	identity  *GroupIndex
}

// NewHierarchy builds the hierarchy from the group-key columns of t and checks
// that every tax unit lies within exactly one household.
func NewHierarchy(t *table.Table) (*Hierarchy, error) {
	tu, err := keyColumn(t, TaxUnitKey)
	if err != nil {
		return nil, err
	}
	hh, err := keyColumn(t, HouseholdKey)
	if err != nil {
		return nil, err
	}
	return NewHierarchyFromKeys(tu, hh)
}

// NewHierarchyFromKeys builds the hierarchy from raw key vectors.
func NewHierarchyFromKeys(taxUnitIDs, householdIDs []int64) (*Hierarchy, error) {
	if len(taxUnitIDs) != len(householdIDs) {
		return nil, &LengthError{Operation: "hierarchy", Want: len(taxUnitIDs), Got: len(householdIDs)}
	}

	h := &Hierarchy{
		rows:      len(taxUnitIDs),
		taxUnit:   NewGroupIndex(taxUnitIDs),
		household: NewGroupIndex(householdIDs),
	}

	for grp := 0; grp < h.taxUnit.Groups(); grp++ {
		members := h.taxUnit.Members(grp)
		first := householdIDs[members[0]]
		var spans []int64
		for _, r := range members[1:] {
			if householdIDs[r] != first {
				spans = appendUnique(spans, householdIDs[r])
			}
		}
		if len(spans) > 0 {
			all := append([]int64{first}, spans...)
			sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
			return nil, &NestingError{TaxUnit: h.taxUnit.Key(grp), Households: all}
		}
	}

	ids := make([]int64, h.rows)
	for i := range ids {
		ids[i] = int64(i)
	}
	h.identity = NewGroupIndex(ids)

	return h, nil
}

func keyColumn(t *table.Table, name string) ([]int64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, &table.MissingColumnError{Column: name}
	}
	vals, err := c.Ints()
	if err != nil {
		return nil, fmt.Errorf("group key: %w", err)
	}
	return vals, nil
}

func appendUnique(s []int64, v int64) []int64 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// Rows returns the number of individuals.
func (h *Hierarchy) Rows() int { return h.rows }

// Index returns the group index for a level. The individual level maps every
// row to its own group.
func (h *Hierarchy) Index(level Level) *GroupIndex {
	switch level {
	case TaxUnit:
		return h.taxUnit
	case Household:
		return h.household
	default:
		return h.identity
	}
}

// PartitionByHousehold splits the rows into at most n disjoint partitions.
// Households are never split and rows keep their relative order within a
// partition. Households are dealt round-robin in order of first appearance.
func (h *Hierarchy) PartitionByHousehold(n int) [][]int {
	groups := h.household.Groups()
	if n < 1 {
		n = 1
	}
	if n > groups {
		n = groups
	}
	if n == 0 {
		return nil
	}

	assign := make([]int, groups)
	for grp := range assign {
		assign[grp] = grp % n
	}

	parts := make([][]int, n)
	for row := 0; row < h.rows; row++ {
		p := assign[h.household.Group(row)]
		parts[p] = append(parts[p], row)
	}
	return parts
}
