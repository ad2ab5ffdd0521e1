package arbitration

import (
	"fmt"
	"time"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

// Component is one independently computed transfer amount and the output
// that carries it after arbitration.
type Component struct {
	// Amount is the Float column of the independently computed entitlement.
	Amount string

	// Granted is the output column holding the amount actually paid.
	Granted string
}

// Transfer is a candidate of a precedence resolution. Its amount is the sum
// of its components, e.g. housing benefit plus child supplement.
type Transfer struct {
	Name       string
	Components []Component
}

// Precedence grants, per group, the first transfer that covers the unmet
// need on its own and zeroes all others.
type Precedence struct {
	// Name is the choice rule. Its Int output is the index of the granted
	// candidate, or len(Candidates) when the baseline is paid.
	Name string

	// Level is the group the need is assessed for, usually entity.Household.
	Level entity.Level

	// Need is the Float column of the group's unmet need.
	Need string

	// Candidates are the transfers in priority order, highest first.
	Candidates []Transfer

	// Baseline is paid in full when no candidate covers the need.
	Baseline Component

	// Places is the decimal precision of the residual test. Zero uses DefaultPlaces.
	Places int32

	ValidFrom  time.Time
	ValidUntil time.Time
}

func (p *Precedence) places() int32 {
	if p.Places == 0 {
		return DefaultPlaces
	}
	return p.Places
}

// components returns every component in priority order, baseline last.
func (p *Precedence) components() []Component {
	var out []Component
	for _, c := range p.Candidates {
		out = append(out, c.Components...)
	}
	return append(out, p.Baseline)
}

// owner returns the candidate index owning each component; the baseline is
// owned by len(Candidates).
func (p *Precedence) owner() []int {
	var out []int
	for i, c := range p.Candidates {
		for range c.Components {
			out = append(out, i)
		}
	}
	return append(out, len(p.Candidates))
}

// Validate checks the definition. Components must be disjoint across
// candidates so that zeroing one candidate never touches another.
func (p *Precedence) Validate() error {
	if p.Name == "" {
		return &DefinitionError{Message: "name cannot be empty"}
	}
	if p.Level == entity.Individual {
		return &DefinitionError{Name: p.Name, Message: "precedence is resolved per group, not per individual"}
	}
	if p.Need == "" {
		return &DefinitionError{Name: p.Name, Message: "need column is required"}
	}
	if p.Baseline.Amount == "" || p.Baseline.Granted == "" {
		return &DefinitionError{Name: p.Name, Message: "baseline transfer is required"}
	}

	amounts := map[string]string{}
	granted := map[string]bool{}
	for _, cand := range p.Candidates {
		if cand.Name == "" || len(cand.Components) == 0 {
			return &DefinitionError{Name: p.Name, Message: "every candidate needs a name and at least one component"}
		}
	}
	owners := p.owner()
	for k, c := range p.components() {
		owner := "baseline"
		if owners[k] < len(p.Candidates) {
			owner = p.Candidates[owners[k]].Name
		}
		if c.Amount == "" || c.Granted == "" {
			return &DefinitionError{Name: p.Name, Message: fmt.Sprintf("component of %q has an empty column", owner)}
		}
		if prev, ok := amounts[c.Amount]; ok {
			return &DefinitionError{Name: p.Name, Message: fmt.Sprintf("amount %q is shared by %q and %q", c.Amount, prev, owner)}
		}
		if granted[c.Granted] || c.Granted == p.Name {
			return &DefinitionError{Name: p.Name, Message: fmt.Sprintf("granted output %q is declared twice", c.Granted)}
		}
		amounts[c.Amount] = owner
		granted[c.Granted] = true
	}
	for g := range granted {
		if _, ok := amounts[g]; ok || g == p.Need {
			return &DefinitionError{Name: p.Name, Message: fmt.Sprintf("granted output %q collides with an input", g)}
		}
	}
	return nil
}

// Resolve returns the per-row choice and the granted amount of every
// component, keyed by the component's Granted name. amounts is keyed by the
// component's Amount name. Group values are read from the first member row,
// as need and transfers are constant within their group.
func (p *Precedence) Resolve(index *entity.GroupIndex, need []float64, amounts map[string][]float64) ([]int64, map[string][]float64, error) {
	comps := p.components()
	owners := p.owner()
	for _, c := range comps {
		if _, ok := amounts[c.Amount]; !ok {
			return nil, nil, fmt.Errorf("precedence %q: amount %q not supplied", p.Name, c.Amount)
		}
	}

	groups := index.Groups()
	choice := make([]int64, groups)
	for g := 0; g < groups; g++ {
		first := index.Members(g)[0]
		choice[g] = int64(len(p.Candidates))
		for i := range p.Candidates {
			covered := 0.0
			for k, c := range comps {
				if owners[k] == i {
					covered += amounts[c.Amount][first]
				}
			}
			residual := rounding.Cents(need[first]-covered, p.places())
			if !residual.IsPositive() {
				choice[g] = int64(i)
				break
			}
		}
	}

	rowChoice, err := index.BroadcastInt(choice)
	if err != nil {
		return nil, nil, err
	}

	granted := make(map[string][]float64, len(comps))
	for k, c := range comps {
		src := amounts[c.Amount]
		out := make([]float64, len(rowChoice))
		for row, ch := range rowChoice {
			if int(ch) == owners[k] {
				out[row] = src[row]
			}
		}
		granted[c.Granted] = out
	}

	if err := p.checkExclusive(index, granted); err != nil {
		return nil, nil, err
	}
	return rowChoice, granted, nil
}

// checkExclusive enforces at most one paying transfer per group.
func (p *Precedence) checkExclusive(index *entity.GroupIndex, granted map[string][]float64) error {
	comps := p.components()
	owners := p.owner()
	for g := 0; g < index.Groups(); g++ {
		paying := map[int]bool{}
		for _, row := range index.Members(g) {
			for k, c := range comps {
				if granted[c.Granted][row] != 0 {
					paying[owners[k]] = true
				}
			}
		}
		if len(paying) > 1 {
			return &InvariantError{Name: p.Name, Group: index.Key(g), Message: fmt.Sprintf("%d transfers granted", len(paying))}
		}
	}
	return nil
}

// Rules returns the choice rule followed by one rule per granted output, in
// component order with the baseline last.
func (p *Precedence) Rules() ([]*rules.Rule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	comps := p.components()
	inputs := []rules.Input{{Name: p.Need, Kind: table.KindFloat}}
	for _, c := range comps {
		inputs = append(inputs, rules.Input{Name: c.Amount, Kind: table.KindFloat})
	}

	resolve := func(a *rules.Args) ([]int64, map[string][]float64, error) {
		need := a.Float(p.Need)
		amounts := make(map[string][]float64, len(comps))
		for _, c := range comps {
			amounts[c.Amount] = a.Float(c.Amount)
		}
		if err := a.Err(); err != nil {
			return nil, nil, err
		}
		return p.Resolve(a.Index(p.Level), need, amounts)
	}

	out := []*rules.Rule{{
		Name:        p.Name,
		Inputs:      inputs,
		Returns:     table.KindInt,
		Level:       p.Level,
		ValidFrom:   p.ValidFrom,
		ValidUntil:  p.ValidUntil,
		Description: fmt.Sprintf("precedence over %d transfers", len(p.Candidates)+1),
		Compute: func(a *rules.Args) (*table.Column, error) {
			choice, _, err := resolve(a)
			if err != nil {
				return nil, err
			}
			return a.IntResult(choice), nil
		},
	}}

	for k, c := range comps {
		owner := p.owner()[k]
		out = append(out, &rules.Rule{
			Name:        c.Granted,
			Inputs:      []rules.Input{{Name: p.Name, Kind: table.KindInt}, {Name: c.Amount, Kind: table.KindFloat}},
			Returns:     table.KindFloat,
			Level:       p.Level,
			ValidFrom:   p.ValidFrom,
			ValidUntil:  p.ValidUntil,
			Description: fmt.Sprintf("%s after precedence %q", c.Amount, p.Name),
			Compute: func(a *rules.Args) (*table.Column, error) {
				choice := a.Int(p.Name)
				amount := a.Float(c.Amount)
				if err := a.Err(); err != nil {
					return nil, err
				}
				vals := make([]float64, len(choice))
				for row, ch := range choice {
					if int(ch) == owner {
						vals[row] = amount[row]
					}
				}
				return a.FloatResult(vals), nil
			},
		})
	}
	return out, nil
}
