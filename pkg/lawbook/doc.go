// Package lawbook holds the rule content of one deliberate vintage of the
// German tax and transfer system: social insurance contributions, child
// benefit, income tax with the favorability check between child benefit and
// child allowance, basic subsistence, housing benefit, child supplement and
// the precedence between them.
//
// The engine knows nothing about this content. Register adds the rules to a
// registry and Parameters returns the bundled parameter files; both can be
// replaced by another rule set without touching the engine.
//
// Raw input columns, one row per person:
//
//	tax_unit_id        Int
//	household_id       Int
//	age                Int
//	wage               Float   monthly gross earnings
//	capital_income     Float   annual
//	rent               Float   monthly share of the household rent
//	disability_degree  Int
//
// Amounts ending in _tu are annual tax-unit figures; all other amounts are
// monthly.
package lawbook
