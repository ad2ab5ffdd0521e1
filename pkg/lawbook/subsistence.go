package lawbook

import (
	"math"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
	"mercator-hq/taxsim/pkg/tariff"
)

// subsistenceFrom is the introduction of the basic subsistence scheme.
var subsistenceFrom = rules.Date(2005, 1, 1)

func householdSum(name, input string) *rules.Rule {
	return &rules.Rule{
		Name:        name,
		Inputs:      []rules.Input{float(input)},
		Returns:     table.KindFloat,
		Level:       entity.Household,
		Aggregation: entity.Sum,
		ValidFrom:   subsistenceFrom,
	}
}

func subsistenceRules() []*rules.Rule {
	return []*rules.Rule{
		{
			Name:        "standard_rate",
			Inputs:      []rules.Input{boolean("child"), integer("n_adults_tu"), parameters},
			Returns:     table.KindFloat,
			ValidFrom:   subsistenceFrom,
			Description: "monthly standard need of a person",
			Compute: func(a *rules.Args) (*table.Column, error) {
				child := a.Bool("child")
				adults := a.Int("n_adults_tu")
				rates := a.ParamMap("basic_subsistence.standard_rate")
				rate := func(key string) float64 {
					v, ok := rates[key]
					if !ok {
						a.Failf("parameter basic_subsistence.standard_rate has no %q rate", key)
					}
					return v
				}
				childRate, partnerRate, singleRate := rate("child"), rate("partner"), rate("single")
				if err := a.Err(); err != nil {
					return nil, err
				}
				out := make([]float64, len(child))
				for i := range child {
					switch {
					case child[i]:
						out[i] = childRate
					case adults[i] >= 2:
						out[i] = partnerRate
					default:
						out[i] = singleRate
					}
				}
				return a.FloatResult(out), nil
			},
		},
		householdSum("standard_rate_hh", "standard_rate"),
		householdSum("housing_cost_hh", ColRent),
		{
			Name:      "regelbedarf_hh",
			Inputs:    []rules.Input{float("standard_rate_hh"), float("housing_cost_hh")},
			Returns:   table.KindFloat,
			Level:     entity.Household,
			ValidFrom: subsistenceFrom,
			Compute: func(a *rules.Args) (*table.Column, error) {
				rate := a.Float("standard_rate_hh")
				housing := a.Float("housing_cost_hh")
				out := make([]float64, len(rate))
				for i := range rate {
					out[i] = rate[i] + housing[i]
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:      "income_disregard",
			Inputs:    []rules.Input{float(ColWage), parameters},
			Returns:   table.KindFloat,
			ValidFrom: subsistenceFrom,
			Rounding:  cents,
			Compute: func(a *rules.Args) (*table.Column, error) {
				wage := a.Float(ColWage)
				schedule := a.ParamSchedule("basic_subsistence.income_disregard")
				if err := a.Err(); err != nil {
					return nil, err
				}
				out, err := schedule.EvaluateColumn(wage, 1)
				if err != nil {
					return nil, tariff.InColumn(err, ColWage)
				}
				return a.FloatResult(out), nil
			},
		},
		{
			Name:      "countable_income",
			Inputs:    []rules.Input{float(ColWage), float("income_disregard")},
			Returns:   table.KindFloat,
			ValidFrom: subsistenceFrom,
			Compute: func(a *rules.Args) (*table.Column, error) {
				wage := a.Float(ColWage)
				disregard := a.Float("income_disregard")
				out := make([]float64, len(wage))
				for i := range wage {
					out[i] = math.Max(0, wage[i]-disregard[i])
				}
				return a.Result(a.FloatResult(out))
			},
		},
		householdSum("countable_income_hh", "countable_income"),
		{
			Name:        "unmet_need_hh",
			Inputs:      []rules.Input{float("regelbedarf_hh"), float("countable_income_hh")},
			Returns:     table.KindFloat,
			Level:       entity.Household,
			ValidFrom:   subsistenceFrom,
			Rounding:    cents,
			Description: "monthly need not covered by the household's countable income",
			Compute: func(a *rules.Args) (*table.Column, error) {
				need := a.Float("regelbedarf_hh")
				income := a.Float("countable_income_hh")
				out := make([]float64, len(need))
				for i := range need {
					out[i] = math.Max(0, need[i]-income[i])
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:        "unemployment_assistance_hh",
			Inputs:      []rules.Input{float("unmet_need_hh")},
			Returns:     table.KindFloat,
			Level:       entity.Household,
			ValidFrom:   subsistenceFrom,
			Description: "basic subsistence entitlement before precedence",
			Compute: func(a *rules.Args) (*table.Column, error) {
				need := a.Float("unmet_need_hh")
				return a.Result(a.FloatResult(append([]float64(nil), need...)))
			},
		},
	}
}
