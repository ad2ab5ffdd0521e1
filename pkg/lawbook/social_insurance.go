package lawbook

import (
	"math"

	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

var cents = &rounding.Spec{Base: 0.01, Direction: rounding.Nearest}

// contribution is the employee share of one insurance branch on wages up to
// the branch's contribution ceiling.
func contribution(name, rateKey, ceilingKey string) *rules.Rule {
	return &rules.Rule{
		Name:        name,
		Inputs:      []rules.Input{float(ColWage), parameters},
		Returns:     table.KindFloat,
		Rounding:    cents,
		Description: "employee contribution capped at the contribution ceiling",
		Compute: func(a *rules.Args) (*table.Column, error) {
			wage := a.Float(ColWage)
			rate := a.ParamFloat(rateKey)
			ceiling := a.ParamFloat(ceilingKey)
			out := make([]float64, len(wage))
			for i, w := range wage {
				out[i] = rate * math.Min(math.Max(w, 0), ceiling)
			}
			return a.Result(a.FloatResult(out))
		},
	}
}

func socialInsuranceRules() []*rules.Rule {
	parts := []string{
		"pension_contribution",
		"health_contribution",
		"unemployment_contribution",
		"care_contribution",
	}
	total := &rules.Rule{
		Name:     "social_insurance_total",
		Returns:  table.KindFloat,
		Rounding: cents,
		Compute: func(a *rules.Args) (*table.Column, error) {
			out := make([]float64, a.Rows())
			for _, p := range parts {
				for i, v := range a.Float(p) {
					out[i] += v
				}
			}
			return a.Result(a.FloatResult(out))
		},
	}
	for _, p := range parts {
		total.Inputs = append(total.Inputs, float(p))
	}

	return []*rules.Rule{
		contribution("pension_contribution", "social_insurance.pension_rate", "social_insurance.pension_ceiling"),
		contribution("health_contribution", "social_insurance.health_rate", "social_insurance.health_ceiling"),
		contribution("unemployment_contribution", "social_insurance.unemployment_rate", "social_insurance.pension_ceiling"),
		contribution("care_contribution", "social_insurance.care_rate", "social_insurance.health_ceiling"),
		total,
	}
}
