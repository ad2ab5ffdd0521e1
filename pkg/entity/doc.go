// Package entity implements the three-level entity hierarchy (individual, tax
// unit, household) and the aggregation layer used to pool values across it.
//
// Group keys are indexed once into a GroupIndex. Aggregation is an explicit
// reduce-then-broadcast over that index: one value is computed per group and
// written back to every member row, so the result always has the same row
// count and row order as the input. There is no implicit index alignment.
//
//	idx := entity.NewGroupIndex(householdIDs)
//	rentHH, err := idx.AggregateFloat(rent, entity.Sum)
//
// Hierarchy bundles the tax-unit and household indexes of one input table and
// validates that tax units nest inside households. PartitionByHousehold splits
// the rows for parallel evaluation without ever splitting a household.
package entity
