// Package rules defines the rule model and the dated rule registry.
//
// A rule is a named, pure column computation with an explicit list of typed
// inputs. Inputs name raw columns, other rules, or the reserved
// "parameters" input that injects the parameter snapshot of the policy date.
// Dependencies are data, never inferred from function signatures.
//
// # Temporal variants
//
// The same logical quantity may have several variants, each valid over a
// half-open interval [ValidFrom, ValidUntil). The Registry keeps the variants
// of a name sorted by start date and selects the one covering a policy date
// by binary search:
//
//	reg := rules.NewRegistry()
//	_ = reg.Register(&rules.Rule{Name: "child_benefit", ValidUntil: rules.Date(2023, 1, 1), ...})
//	_ = reg.Register(&rules.Rule{Name: "child_benefit", ValidFrom: rules.Date(2023, 1, 1), ...})
//	rule, err := reg.Select("child_benefit", rules.Date(2022, 12, 31))
//
// Overlapping variants are rejected when registered. Gaps between consecutive
// variants are reported by Validate.
//
// # Errors
//
// Every configuration error matches ErrConfiguration with errors.Is.
package rules
