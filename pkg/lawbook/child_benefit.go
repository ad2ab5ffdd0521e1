package lawbook

import (
	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

// flatChildBenefitFrom is the first day of the rank-independent child benefit.
var flatChildBenefitFrom = rules.Date(2023, 1, 1)

func childBenefitRules() []*rules.Rule {
	return []*rules.Rule{
		{
			Name:        "child_benefit",
			Inputs:      []rules.Input{boolean("child"), parameters},
			Returns:     table.KindFloat,
			ValidUntil:  flatChildBenefitFrom,
			Description: "monthly child benefit by birth rank within the tax unit",
			Compute: func(a *rules.Args) (*table.Column, error) {
				child := a.Bool("child")
				amounts := a.ParamList("child_benefit.amount_by_rank")
				if err := a.Err(); err != nil {
					return nil, err
				}
				if len(amounts) == 0 {
					a.Failf("child_benefit.amount_by_rank is empty")
					return a.Result(nil)
				}
				rank, err := a.Index(entity.TaxUnit).Rank(child)
				if err != nil {
					return nil, err
				}
				out := make([]float64, len(child))
				for i, r := range rank {
					if r == 0 {
						continue
					}
					k := int(r) - 1
					if k >= len(amounts) {
						k = len(amounts) - 1
					}
					out[i] = amounts[k]
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:        "child_benefit",
			Inputs:      []rules.Input{boolean("child"), parameters},
			Returns:     table.KindFloat,
			ValidFrom:   flatChildBenefitFrom,
			Description: "monthly child benefit, equal for every child",
			Compute: func(a *rules.Args) (*table.Column, error) {
				child := a.Bool("child")
				amount := a.ParamFloat("child_benefit.flat")
				out := make([]float64, len(child))
				for i, c := range child {
					if c {
						out[i] = amount
					}
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:        "child_benefit_tu",
			Inputs:      []rules.Input{float("child_benefit")},
			Returns:     table.KindFloat,
			Level:       entity.TaxUnit,
			Aggregation: entity.Sum,
		},
	}
}
