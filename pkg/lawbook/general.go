package lawbook

import (
	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

func generalRules() []*rules.Rule {
	return []*rules.Rule{
		{
			Name:        "adult",
			Inputs:      []rules.Input{integer(ColAge), parameters},
			Returns:     table.KindBool,
			Description: "person has reached the adult age",
			Compute: func(a *rules.Args) (*table.Column, error) {
				age := a.Int(ColAge)
				limit := a.ParamInt("general.adult_age")
				out := make([]bool, len(age))
				for i, v := range age {
					out[i] = v >= limit
				}
				return a.Result(a.BoolResult(out))
			},
		},
		{
			Name:    "child",
			Inputs:  []rules.Input{boolean("adult")},
			Returns: table.KindBool,
			Compute: func(a *rules.Args) (*table.Column, error) {
				adult := a.Bool("adult")
				out := make([]bool, len(adult))
				for i, v := range adult {
					out[i] = !v
				}
				return a.Result(a.BoolResult(out))
			},
		},
		{
			Name:        "n_adults_tu",
			Inputs:      []rules.Input{boolean("adult")},
			Returns:     table.KindInt,
			Level:       entity.TaxUnit,
			Aggregation: entity.Sum,
		},
		{
			Name:        "n_children_tu",
			Inputs:      []rules.Input{boolean("child")},
			Returns:     table.KindInt,
			Level:       entity.TaxUnit,
			Aggregation: entity.Sum,
		},
		{
			Name:        "n_children_hh",
			Inputs:      []rules.Input{boolean("child")},
			Returns:     table.KindInt,
			Level:       entity.Household,
			Aggregation: entity.Sum,
		},
	}
}
