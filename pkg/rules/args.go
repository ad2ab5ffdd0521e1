package rules

import (
	"fmt"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/table"
	"mercator-hq/taxsim/pkg/tariff"
)

// Args gives a ComputeFunc access to its declared inputs.
//
// Accessors never return nil slices: on a failed lookup they record the
// first error and return zero values of the right length, so a compute
// function can read all its inputs and check Err once.
type Args struct {
	rule      *Rule
	rows      int
	columns   map[string]*table.Column
	params    *params.Set
	hierarchy *entity.Hierarchy
	err       error
}

// NewArgs binds the inputs of one rule invocation. Columns must already be
// pooled to the rule's level.
func NewArgs(rule *Rule, rows int, columns map[string]*table.Column, p *params.Set, h *entity.Hierarchy) *Args {
	return &Args{
		rule:      rule,
		rows:      rows,
		columns:   columns,
		params:    p,
		hierarchy: h,
	}
}

// Rule returns the rule being computed.
func (a *Args) Rule() *Rule { return a.rule }

// Rows returns the number of rows of every input and the expected output.
func (a *Args) Rows() int { return a.rows }

// Err returns the first error recorded by an accessor or Fail.
func (a *Args) Err() error { return a.err }

// Fail records err unless an earlier error was recorded.
func (a *Args) Fail(err error) {
	if a.err == nil && err != nil {
		a.err = err
	}
}

// Failf records a formatted error.
func (a *Args) Failf(format string, args ...any) {
	a.Fail(fmt.Errorf(format, args...))
}

func (a *Args) declared(name string) (Input, bool) {
	for _, in := range a.rule.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// Column returns the declared input column name.
func (a *Args) Column(name string) (*table.Column, error) {
	if _, ok := a.declared(name); !ok || name == ParametersInput {
		return nil, &UndeclaredInputError{Rule: a.rule.Name, Input: name}
	}
	c, ok := a.columns[name]
	if !ok {
		return nil, &table.MissingColumnError{Column: name}
	}
	return c, nil
}

// Float returns a Float input.
func (a *Args) Float(name string) []float64 {
	c, err := a.Column(name)
	if err == nil {
		var v []float64
		if v, err = c.Floats(); err == nil {
			return v
		}
	}
	a.Fail(err)
	return make([]float64, a.rows)
}

// Int returns an Int input.
func (a *Args) Int(name string) []int64 {
	c, err := a.Column(name)
	if err == nil {
		var v []int64
		if v, err = c.Ints(); err == nil {
			return v
		}
	}
	a.Fail(err)
	return make([]int64, a.rows)
}

// Bool returns a Bool input.
func (a *Args) Bool(name string) []bool {
	c, err := a.Column(name)
	if err == nil {
		var v []bool
		if v, err = c.Bools(); err == nil {
			return v
		}
	}
	a.Fail(err)
	return make([]bool, a.rows)
}

// Optional returns an OptionalFloat input and its presence mask.
func (a *Args) Optional(name string) ([]float64, []bool) {
	c, err := a.Column(name)
	if err == nil {
		var v []float64
		var present []bool
		if v, present, err = c.Optional(); err == nil {
			return v, present
		}
	}
	a.Fail(err)
	return make([]float64, a.rows), make([]bool, a.rows)
}

// Params returns the parameter snapshot of the policy date.
func (a *Args) Params() *params.Set {
	if _, ok := a.declared(ParametersInput); !ok {
		a.Fail(&UndeclaredInputError{Rule: a.rule.Name, Input: ParametersInput})
		return nil
	}
	if a.params == nil {
		a.Fail(fmt.Errorf("rule %q: no parameter snapshot bound", a.rule.Name))
	}
	return a.params
}

// ParamFloat returns a scalar parameter.
func (a *Args) ParamFloat(key string) float64 {
	p := a.Params()
	if p == nil {
		return 0
	}
	v, err := p.Float(key)
	a.Fail(err)
	return v
}

// ParamInt returns an integer parameter.
func (a *Args) ParamInt(key string) int64 {
	p := a.Params()
	if p == nil {
		return 0
	}
	v, err := p.Int(key)
	a.Fail(err)
	return v
}

// ParamList returns a list parameter.
func (a *Args) ParamList(key string) []float64 {
	p := a.Params()
	if p == nil {
		return nil
	}
	v, err := p.List(key)
	a.Fail(err)
	return v
}

// ParamMap returns a named map parameter.
func (a *Args) ParamMap(key string) map[string]float64 {
	p := a.Params()
	if p == nil {
		return nil
	}
	v, err := p.Map(key)
	a.Fail(err)
	return v
}

// ParamSchedule returns a tariff schedule parameter. On failure it returns an
// empty schedule that rejects evaluation.
func (a *Args) ParamSchedule(key string) *tariff.Schedule {
	p := a.Params()
	if p == nil {
		return &tariff.Schedule{}
	}
	s, err := p.Schedule(key)
	if err != nil {
		a.Fail(err)
		return &tariff.Schedule{}
	}
	return s
}

// Index returns the group index of level.
func (a *Args) Index(level entity.Level) *entity.GroupIndex {
	if a.hierarchy == nil {
		a.Failf("rule %q: no entity hierarchy bound", a.rule.Name)
		keys := make([]int64, a.rows)
		for i := range keys {
			keys[i] = int64(i)
		}
		return entity.NewGroupIndex(keys)
	}
	return a.hierarchy.Index(level)
}

// FloatResult wraps values as the rule's output column.
func (a *Args) FloatResult(values []float64) *table.Column {
	return table.NewFloat(a.rule.Name, values)
}

// IntResult wraps values as the rule's output column.
func (a *Args) IntResult(values []int64) *table.Column {
	return table.NewInt(a.rule.Name, values)
}

// BoolResult wraps values as the rule's output column.
func (a *Args) BoolResult(values []bool) *table.Column {
	return table.NewBool(a.rule.Name, values)
}

// Result returns the rule's output column together with the recorded error.
// It lets a compute function end with a single statement.
func (a *Args) Result(c *table.Column) (*table.Column, error) {
	if a.err != nil {
		return nil, a.err
	}
	return c, nil
}
