package arbitration

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

// DefaultPlaces is the comparison precision in decimal places (cents).
const DefaultPlaces = 2

// Scheme is one candidate of a favorability check.
type Scheme struct {
	// Name identifies the scheme in logs and errors.
	Name string

	// NetTax is the Float column holding the scheme's comparable net tax,
	// with scheme-contingent benefits already subtracted.
	NetTax string

	// Effects maps each side-effect output to the column whose value the
	// output takes when this scheme is chosen. Outputs missing from the map
	// are zero under this scheme.
	Effects map[string]string
}

// Output is a side-effect column of a favorability check.
type Output struct {
	Name string

	// Level is the entity level of the output. It must not be above the
	// level of the check, and every source column must be defined at it.
	Level entity.Level
}

// Favorability selects, per group, the scheme with the lowest net tax.
type Favorability struct {
	// Name is the choice rule. Its Int output holds the index of the chosen
	// scheme, constant within each group.
	Name string

	// Level is the group the choice is made for, usually entity.TaxUnit.
	Level entity.Level

	// Schemes are the candidates in priority order; ties go to the first.
	Schemes []Scheme

	// Outputs are the side-effect columns, each produced by its own rule.
	Outputs []Output

	// Places is the decimal precision of the comparison. Zero uses DefaultPlaces.
	Places int32

	// ValidFrom and ValidUntil bound the generated rules.
	ValidFrom  time.Time
	ValidUntil time.Time
}

func (f *Favorability) places() int32 {
	if f.Places == 0 {
		return DefaultPlaces
	}
	return f.Places
}

// Validate checks the definition.
func (f *Favorability) Validate() error {
	if f.Name == "" {
		return &DefinitionError{Message: "name cannot be empty"}
	}
	if f.Level == entity.Individual {
		return &DefinitionError{Name: f.Name, Message: "favorability is decided per group, not per individual"}
	}
	if len(f.Schemes) == 0 {
		return &DefinitionError{Name: f.Name, Message: "at least one scheme is required"}
	}
	outputs := make(map[string]bool, len(f.Outputs))
	for _, o := range f.Outputs {
		if o.Name == "" || o.Name == f.Name || outputs[o.Name] {
			return &DefinitionError{Name: f.Name, Message: fmt.Sprintf("invalid or duplicate output %q", o.Name)}
		}
		if o.Level > f.Level {
			return &DefinitionError{Name: f.Name, Message: fmt.Sprintf("output %q is above the level of the check", o.Name)}
		}
		outputs[o.Name] = true
	}
	seen := make(map[string]bool, len(f.Schemes))
	for i, s := range f.Schemes {
		if s.Name == "" || seen[s.Name] {
			return &DefinitionError{Name: f.Name, Message: fmt.Sprintf("scheme %d has an empty or duplicate name", i)}
		}
		seen[s.Name] = true
		if s.NetTax == "" {
			return &DefinitionError{Name: f.Name, Message: fmt.Sprintf("scheme %q has no net tax column", s.Name)}
		}
		for out, src := range s.Effects {
			if !outputs[out] {
				return &DefinitionError{Name: f.Name, Message: fmt.Sprintf("scheme %q sets undeclared output %q", s.Name, out)}
			}
			if src == "" || outputs[src] {
				return &DefinitionError{Name: f.Name, Message: fmt.Sprintf("scheme %q has an invalid source for %q", s.Name, out)}
			}
		}
	}
	return nil
}

// Choose returns, for every row, the index of the scheme chosen for the row's
// group. netTaxes holds one column per scheme in scheme order. A scheme's
// group net tax is the maximum over the group's members, since liability is
// joint.
func (f *Favorability) Choose(index *entity.GroupIndex, netTaxes [][]float64) ([]int64, error) {
	if len(netTaxes) != len(f.Schemes) {
		return nil, &DefinitionError{Name: f.Name, Message: fmt.Sprintf("got %d net tax columns for %d schemes", len(netTaxes), len(f.Schemes))}
	}

	perScheme := make([][]decimal.Decimal, len(f.Schemes))
	for s, col := range netTaxes {
		reduced, err := index.ReduceFloat(col, entity.Max)
		if err != nil {
			return nil, err
		}
		perScheme[s] = make([]decimal.Decimal, len(reduced))
		for g, v := range reduced {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &InvariantError{Name: f.Name, Group: index.Key(g), Message: fmt.Sprintf("scheme %q has no comparable net tax", f.Schemes[s].Name)}
			}
			perScheme[s][g] = rounding.Cents(v, f.places())
		}
	}

	groups := index.Groups()
	choice := make([]int64, groups)
	for g := 0; g < groups; g++ {
		best := 0
		for s := 1; s < len(f.Schemes); s++ {
			if perScheme[s][g].LessThan(perScheme[best][g]) {
				best = s
			}
		}
		choice[g] = int64(best)
	}

	if err := f.checkChoice(index, choice); err != nil {
		return nil, err
	}
	return index.BroadcastInt(choice)
}

// checkChoice enforces exactly one chosen scheme per group.
func (f *Favorability) checkChoice(index *entity.GroupIndex, choice []int64) error {
	for g, c := range choice {
		if c < 0 || int(c) >= len(f.Schemes) {
			return &InvariantError{Name: f.Name, Group: index.Key(g), Message: "no scheme chosen"}
		}
	}
	return nil
}

// Apply computes a side-effect output from the per-row choice. sources maps
// source column names to their values.
func (f *Favorability) Apply(output string, choice []int64, sources map[string][]float64) ([]float64, error) {
	out := make([]float64, len(choice))
	for row, c := range choice {
		if c < 0 || int(c) >= len(f.Schemes) {
			return nil, fmt.Errorf("favorability %q: row %d has invalid scheme index %d", f.Name, row, c)
		}
		src := f.Schemes[c].Effects[output]
		if src == "" {
			continue
		}
		vals, ok := sources[src]
		if !ok {
			return nil, fmt.Errorf("favorability %q: source column %q not supplied", f.Name, src)
		}
		out[row] = vals[row]
	}
	return out, nil
}

// sources returns the distinct source columns of output in first-use order.
func (f *Favorability) sources(output string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range f.Schemes {
		if src := s.Effects[output]; src != "" && !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out
}

// Rules returns the choice rule followed by one rule per side-effect output.
func (f *Favorability) Rules() ([]*rules.Rule, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	netTaxes := make([]string, len(f.Schemes))
	inputs := make([]rules.Input, 0, len(f.Schemes))
	seen := map[string]bool{}
	for i, s := range f.Schemes {
		netTaxes[i] = s.NetTax
		if !seen[s.NetTax] {
			seen[s.NetTax] = true
			inputs = append(inputs, rules.Input{Name: s.NetTax, Kind: table.KindFloat})
		}
	}

	out := []*rules.Rule{{
		Name:        f.Name,
		Inputs:      inputs,
		Returns:     table.KindInt,
		Level:       f.Level,
		ValidFrom:   f.ValidFrom,
		ValidUntil:  f.ValidUntil,
		Description: fmt.Sprintf("favorability check over %d schemes", len(f.Schemes)),
		Compute: func(a *rules.Args) (*table.Column, error) {
			cols := make([][]float64, len(netTaxes))
			for i, name := range netTaxes {
				cols[i] = a.Float(name)
			}
			if err := a.Err(); err != nil {
				return nil, err
			}
			choice, err := f.Choose(a.Index(f.Level), cols)
			if err != nil {
				return nil, err
			}
			return a.Result(a.IntResult(choice))
		},
	}}

	for _, o := range f.Outputs {
		output := o.Name
		srcs := f.sources(output)
		inputs := []rules.Input{{Name: f.Name, Kind: table.KindInt}}
		for _, src := range srcs {
			inputs = append(inputs, rules.Input{Name: src, Kind: table.KindFloat})
		}
		out = append(out, &rules.Rule{
			Name:        output,
			Inputs:      inputs,
			Returns:     table.KindFloat,
			Level:       o.Level,
			ValidFrom:   f.ValidFrom,
			ValidUntil:  f.ValidUntil,
			Description: fmt.Sprintf("side effect of favorability check %q", f.Name),
			Compute: func(a *rules.Args) (*table.Column, error) {
				choice := a.Int(f.Name)
				values := make(map[string][]float64, len(srcs))
				for _, src := range srcs {
					values[src] = a.Float(src)
				}
				if err := a.Err(); err != nil {
					return nil, err
				}
				vals, err := f.Apply(output, choice, values)
				if err != nil {
					return nil, err
				}
				return a.FloatResult(vals), nil
			},
		})
	}
	return out, nil
}
