package rules

import (
	"fmt"
	"time"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/table"
)

// ParametersInput is the reserved input name through which a rule receives the
// parameter snapshot of the policy date.
const ParametersInput = "parameters"

// ComputeFunc computes a rule's output column from its declared inputs.
type ComputeFunc func(a *Args) (*table.Column, error)

// Input is one declared dependency of a rule.
type Input struct {
	// Name is a raw column, another rule, or ParametersInput.
	Name string

	// Kind is the column kind the rule expects. It is ignored for
	// ParametersInput.
	Kind table.Kind
}

// Rule is a named, dated, pure column computation.
type Rule struct {
	// Name is the output column the rule produces.
	Name string

	// Inputs are the declared dependencies in positional order.
	Inputs []Input

	// Returns is the kind of the output column.
	Returns table.Kind

	// Level is the entity level the output is defined at. Outputs above
	// Individual are broadcast to every member row of the group.
	Level entity.Level

	// Aggregation pools inputs defined below Level before Compute runs.
	// With a nil Compute the rule is a pure aggregation of its single input.
	Aggregation entity.Op

	// ValidFrom is the inclusive start of the validity interval; zero means
	// unbounded.
	ValidFrom time.Time

	// ValidUntil is the exclusive end of the validity interval; zero means
	// unbounded.
	ValidUntil time.Time

	// Rounding is applied once to the final Float output.
	Rounding *rounding.Spec

	// Compute produces the output column.
	Compute ComputeFunc

	// Description is a human readable summary.
	Description string
}

// Interval returns the rule's validity interval.
func (r *Rule) Interval() Interval {
	return Interval{From: r.ValidFrom, Until: r.ValidUntil}
}

// UsesParameters reports whether the rule declares the parameter snapshot.
func (r *Rule) UsesParameters() bool {
	for _, in := range r.Inputs {
		if in.Name == ParametersInput {
			return true
		}
	}
	return false
}

// Dependencies returns the declared input names excluding ParametersInput.
func (r *Rule) Dependencies() []Input {
	deps := make([]Input, 0, len(r.Inputs))
	for _, in := range r.Inputs {
		if in.Name != ParametersInput {
			deps = append(deps, in)
		}
	}
	return deps
}

// IsAggregation reports whether the rule only pools its input.
func (r *Rule) IsAggregation() bool {
	return r.Compute == nil
}

func (r *Rule) clone() *Rule {
	c := *r
	c.Inputs = append([]Input(nil), r.Inputs...)
	if r.Rounding != nil {
		spec := *r.Rounding
		c.Rounding = &spec
	}
	return &c
}

// validate checks the declaration of a single rule.
func (r *Rule) validate() error {
	if r.Name == "" {
		return &RuleError{Message: "rule name cannot be empty"}
	}
	if r.Name == ParametersInput {
		return &RuleError{Rule: r.Name, Message: "name is reserved for the parameter snapshot"}
	}
	if r.Returns == table.KindInvalid {
		return &RuleError{Rule: r.Name, Message: "return kind must be set"}
	}
	if r.Level < entity.Individual || r.Level > entity.Household {
		return &RuleError{Rule: r.Name, Message: fmt.Sprintf("unknown entity level %d", r.Level)}
	}

	seen := make(map[string]bool, len(r.Inputs))
	for i, in := range r.Inputs {
		if in.Name == "" {
			return &RuleError{Rule: r.Name, Message: fmt.Sprintf("input %d has no name", i)}
		}
		if in.Name == r.Name {
			return &RuleError{Rule: r.Name, Message: "rule cannot depend on itself"}
		}
		if seen[in.Name] {
			return &RuleError{Rule: r.Name, Message: fmt.Sprintf("input %q declared twice", in.Name)}
		}
		seen[in.Name] = true
		if in.Name != ParametersInput && in.Kind == table.KindInvalid {
			return &RuleError{Rule: r.Name, Message: fmt.Sprintf("input %q has no kind", in.Name)}
		}
	}

	if r.Compute == nil {
		deps := r.Dependencies()
		if r.Aggregation == entity.None || r.Level == entity.Individual {
			return &RuleError{Rule: r.Name, Message: "rule without compute must aggregate to a group level"}
		}
		if len(deps) != 1 || len(r.Inputs) != 1 {
			return &RuleError{Rule: r.Name, Message: "aggregation rule must declare exactly one input"}
		}
		if err := aggregationKinds(r.Aggregation, deps[0].Kind, r.Returns); err != nil {
			return &RuleError{Rule: r.Name, Message: err.Error()}
		}
	}

	if !r.ValidFrom.IsZero() && !r.ValidUntil.IsZero() && !r.ValidUntil.After(r.ValidFrom) {
		return &RuleError{Rule: r.Name, Message: "valid_until must be after valid_from"}
	}

	if r.Rounding != nil {
		if r.Returns != table.KindFloat {
			return &RuleError{Rule: r.Name, Message: "rounding applies to float outputs only"}
		}
		if err := r.Rounding.Validate(); err != nil {
			return &RuleError{Rule: r.Name, Message: err.Error()}
		}
	}
	return nil
}

// aggregationKinds checks that a pure aggregation maps in to out.
func aggregationKinds(op entity.Op, in, out table.Kind) error {
	switch {
	case in == table.KindBool && op == entity.Sum:
		if out != table.KindInt {
			return fmt.Errorf("sum over bool input returns an int count, not %s", out)
		}
	case in == table.KindBool:
		if !op.Logical() && op != entity.Max && op != entity.Min {
			return fmt.Errorf("%s is not defined for bool input", op)
		}
		if out != table.KindBool {
			return fmt.Errorf("%s over bool input returns bool, not %s", op, out)
		}
	case in == table.KindFloat || in == table.KindInt:
		if !op.Numeric() {
			return fmt.Errorf("%s is not defined for %s input", op, in)
		}
		if out != in {
			return fmt.Errorf("%s over %s input returns %s, not %s", op, in, in, out)
		}
	default:
		return fmt.Errorf("%s input cannot be aggregated", in)
	}
	return nil
}
