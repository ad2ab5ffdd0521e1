package lawbook

import (
	"math"

	"mercator-hq/taxsim/pkg/arbitration"
	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

// TransferChoiceRule resolves the precedence of housing benefit and child
// supplement over basic subsistence.
const TransferChoiceRule = "transfer_choice_hh"

// Choices of TransferChoiceRule.
const (
	TransferHousing = iota
	TransferSubsistence
)

func transferRules() ([]*rules.Rule, error) {
	out := []*rules.Rule{
		{
			Name:        "housing_benefit_hh",
			Inputs:      []rules.Input{float(ColWage), float("housing_cost_hh"), parameters},
			Returns:     table.KindFloat,
			Level:       entity.Household,
			Aggregation: entity.Sum,
			ValidFrom:   subsistenceFrom,
			Rounding:    cents,
			Description: "rent subsidy tapered by household earnings",
			Compute: func(a *rules.Args) (*table.Column, error) {
				wage := a.Float(ColWage)
				rent := a.Float("housing_cost_hh")
				share := a.ParamFloat("housing_benefit.rent_share")
				ceiling := a.ParamFloat("housing_benefit.rent_ceiling")
				floor := a.ParamFloat("housing_benefit.income_floor")
				taper := a.ParamFloat("housing_benefit.income_taper")
				out := make([]float64, len(wage))
				for i := range wage {
					out[i] = math.Max(0, share*math.Min(rent[i], ceiling)-taper*math.Max(0, wage[i]-floor))
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:        "child_supplement_hh",
			Inputs:      []rules.Input{integer("n_children_hh"), float("countable_income_hh"), parameters},
			Returns:     table.KindFloat,
			Level:       entity.Household,
			ValidFrom:   subsistenceFrom,
			Rounding:    cents,
			Description: "supplement for low-income parents, withdrawn above the income floor",
			Compute: func(a *rules.Args) (*table.Column, error) {
				children := a.Int("n_children_hh")
				income := a.Float("countable_income_hh")
				amount := a.ParamFloat("child_supplement.amount")
				floor := a.ParamFloat("child_supplement.income_floor")
				taper := a.ParamFloat("child_supplement.taper")
				out := make([]float64, len(children))
				for i, n := range children {
					if n == 0 {
						continue
					}
					out[i] = math.Max(0, float64(n)*amount-taper*math.Max(0, income[i]-floor))
				}
				return a.Result(a.FloatResult(out))
			},
		},
	}

	precedence := &arbitration.Precedence{
		Name:  TransferChoiceRule,
		Level: entity.Household,
		Need:  "unmet_need_hh",
		Candidates: []arbitration.Transfer{{
			Name: "housing",
			Components: []arbitration.Component{
				{Amount: "housing_benefit_hh", Granted: "housing_benefit_granted_hh"},
				{Amount: "child_supplement_hh", Granted: "child_supplement_granted_hh"},
			},
		}},
		Baseline:  arbitration.Component{Amount: "unemployment_assistance_hh", Granted: "unemployment_assistance_granted_hh"},
		ValidFrom: subsistenceFrom,
	}
	resolved, err := precedence.Rules()
	if err != nil {
		return nil, err
	}
	return append(out, resolved...), nil
}
