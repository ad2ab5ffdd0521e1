package lawbook

import (
	"errors"
	"math"

	"mercator-hq/taxsim/pkg/arbitration"
	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/rounding"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
	"mercator-hq/taxsim/pkg/tariff"
)

// TaxSchemeRule is the favorability check between child benefit and child
// allowance, each combined with flat or tariff taxation of capital income.
const TaxSchemeRule = "tax_scheme_tu"

// Scheme indexes of TaxSchemeRule, in priority order.
const (
	SchemeBenefitFlat = iota
	SchemeBenefitTariff
	SchemeAllowanceFlat
	SchemeAllowanceTariff
)

var errDisabilityDegree = errors.New("degree of disability must be between 0 and 100")

var wholeEuros = &rounding.Spec{Base: 1, Direction: rounding.Down}

// taxScheme is one combination of child relief and capital income taxation.
type taxScheme struct {
	name      string
	allowance bool
	flat      bool
}

func (s taxScheme) incomeTax() string { return "income_tax_" + s.name + "_tu" }

func (s taxScheme) netTax() string {
	if s.allowance {
		return s.incomeTax()
	}
	return "net_tax_" + s.name + "_tu"
}

var taxSchemes = []taxScheme{
	{name: "benefit_flat", flat: true},
	{name: "benefit_tariff"},
	{name: "allowance_flat", allowance: true, flat: true},
	{name: "allowance_tariff", allowance: true},
}

// splitting applies the schedule to the per-adult share of a joint base and
// scales the result back, so married couples pay twice the tax of half their
// income.
func splitting(s *tariff.Schedule, column string, base []float64, adults []int64) ([]float64, error) {
	split := make([]float64, len(base))
	shares := make([]float64, len(base))
	for i, x := range base {
		split[i] = 1
		if adults[i] >= 2 {
			split[i] = 2
		}
		shares[i] = x / split[i]
	}
	out, err := s.EvaluateColumn(shares, 1)
	if err != nil {
		return nil, tariff.InColumn(err, column)
	}
	for i := range out {
		out[i] *= split[i]
	}
	return out, nil
}

func incomeTaxRules() ([]*rules.Rule, error) {
	out := []*rules.Rule{
		{
			Name:        "disability_allowance",
			Inputs:      []rules.Input{integer(ColDisabilityDegree), parameters},
			Returns:     table.KindFloat,
			Description: "annual lump sum by degree of disability",
			Compute: func(a *rules.Args) (*table.Column, error) {
				degree := a.Int(ColDisabilityDegree)
				steps := a.ParamList("income_tax.disability_allowance")
				if err := a.Err(); err != nil {
					return nil, err
				}
				out := make([]float64, len(degree))
				var bad []int
				for i, d := range degree {
					if d < 0 || d > 100 {
						bad = append(bad, i)
						continue
					}
					k := int(d / 10)
					if k < len(steps) {
						out[i] = steps[k]
					}
				}
				if len(bad) > 0 {
					return nil, &tariff.ColumnError{Column: ColDisabilityDegree, Rows: bad, Cause: errDisabilityDegree}
				}
				return a.FloatResult(out), nil
			},
		},
		{
			Name:        "taxable_income_tu",
			Inputs:      []rules.Input{float(ColWage), float("social_insurance_total"), float("disability_allowance"), integer("n_adults_tu"), parameters},
			Returns:     table.KindFloat,
			Level:       entity.TaxUnit,
			Aggregation: entity.Sum,
			Description: "annual earnings after contributions and the employee allowance",
			Compute: func(a *rules.Args) (*table.Column, error) {
				wage := a.Float(ColWage)
				si := a.Float("social_insurance_total")
				disability := a.Float("disability_allowance")
				adults := a.Int("n_adults_tu")
				allowance := a.ParamFloat("income_tax.employee_allowance")
				out := make([]float64, len(wage))
				for i := range wage {
					out[i] = math.Max(0, 12*(wage[i]-si[i])-disability[i]-float64(adults[i])*allowance)
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:        "capital_income_tu",
			Inputs:      []rules.Input{float(ColCapitalIncome)},
			Returns:     table.KindFloat,
			Level:       entity.TaxUnit,
			Aggregation: entity.Sum,
		},
		{
			Name:    "taxable_capital_income_tu",
			Inputs:  []rules.Input{float("capital_income_tu"), integer("n_adults_tu"), parameters},
			Returns: table.KindFloat,
			Level:   entity.TaxUnit,
			Compute: func(a *rules.Args) (*table.Column, error) {
				capital := a.Float("capital_income_tu")
				adults := a.Int("n_adults_tu")
				allowance := a.ParamFloat("income_tax.saver_allowance")
				out := make([]float64, len(capital))
				for i := range capital {
					out[i] = math.Max(0, capital[i]-float64(adults[i])*allowance)
				}
				return a.Result(a.FloatResult(out))
			},
		},
		{
			Name:    "child_allowance_tu",
			Inputs:  []rules.Input{integer("n_children_tu"), parameters},
			Returns: table.KindFloat,
			Level:   entity.TaxUnit,
			Compute: func(a *rules.Args) (*table.Column, error) {
				children := a.Int("n_children_tu")
				amount := a.ParamFloat("income_tax.child_allowance")
				out := make([]float64, len(children))
				for i, n := range children {
					out[i] = float64(n) * amount
				}
				return a.Result(a.FloatResult(out))
			},
		},
	}

	for _, s := range taxSchemes {
		out = append(out, schemeTaxRule(s))
		if !s.allowance {
			out = append(out, benefitNetTaxRule(s))
		}
	}

	check := &arbitration.Favorability{
		Name:  TaxSchemeRule,
		Level: entity.TaxUnit,
		Outputs: []arbitration.Output{
			{Name: "income_tax_tu", Level: entity.TaxUnit},
			{Name: "child_benefit_paid", Level: entity.Individual},
		},
	}
	for _, s := range taxSchemes {
		effects := map[string]string{"income_tax_tu": s.incomeTax()}
		if !s.allowance {
			effects["child_benefit_paid"] = "child_benefit"
		}
		check.Schemes = append(check.Schemes, arbitration.Scheme{
			Name:    s.name,
			NetTax:  s.netTax(),
			Effects: effects,
		})
	}
	arbitrated, err := check.Rules()
	if err != nil {
		return nil, err
	}
	out = append(out, arbitrated...)

	return append(out, solidaritySurchargeRule()), nil
}

// schemeTaxRule computes the annual income tax of a tax unit under s.
func schemeTaxRule(s taxScheme) *rules.Rule {
	inputs := []rules.Input{
		float("taxable_income_tu"),
		float("taxable_capital_income_tu"),
		integer("n_adults_tu"),
		parameters,
	}
	if s.allowance {
		inputs = append(inputs, float("child_allowance_tu"))
	}
	return &rules.Rule{
		Name:     s.incomeTax(),
		Inputs:   inputs,
		Returns:  table.KindFloat,
		Level:    entity.TaxUnit,
		Rounding: wholeEuros,
		Compute: func(a *rules.Args) (*table.Column, error) {
			income := a.Float("taxable_income_tu")
			capital := a.Float("taxable_capital_income_tu")
			adults := a.Int("n_adults_tu")
			schedule := a.ParamSchedule("income_tax.tariff")
			rate := a.ParamFloat("income_tax.capital_rate")
			var allowance []float64
			if s.allowance {
				allowance = a.Float("child_allowance_tu")
			}
			if err := a.Err(); err != nil {
				return nil, err
			}

			base := make([]float64, len(income))
			for i := range income {
				base[i] = income[i]
				if !s.flat {
					base[i] += capital[i]
				}
				if allowance != nil {
					base[i] = math.Max(0, base[i]-allowance[i])
				}
			}
			tax, err := splitting(schedule, "taxable_income_tu", base, adults)
			if err != nil {
				return nil, err
			}
			if s.flat {
				for i := range tax {
					tax[i] += rate * capital[i]
				}
			}
			return a.FloatResult(tax), nil
		},
	}
}

// benefitNetTaxRule subtracts the annual child benefit from the income tax of
// a benefit scheme, so that all schemes compare on the same footing.
func benefitNetTaxRule(s taxScheme) *rules.Rule {
	return &rules.Rule{
		Name:    s.netTax(),
		Inputs:  []rules.Input{float(s.incomeTax()), float("child_benefit_tu")},
		Returns: table.KindFloat,
		Level:   entity.TaxUnit,
		Compute: func(a *rules.Args) (*table.Column, error) {
			tax := a.Float(s.incomeTax())
			benefit := a.Float("child_benefit_tu")
			out := make([]float64, len(tax))
			for i := range tax {
				out[i] = tax[i] - 12*benefit[i]
			}
			return a.Result(a.FloatResult(out))
		},
	}
}

func solidaritySurchargeRule() *rules.Rule {
	return &rules.Rule{
		Name:        "solidarity_surcharge_tu",
		Inputs:      []rules.Input{float("income_tax_tu"), integer("n_adults_tu"), parameters},
		Returns:     table.KindFloat,
		Level:       entity.TaxUnit,
		Rounding:    cents,
		Description: "surcharge on the income tax of the chosen scheme",
		Compute: func(a *rules.Args) (*table.Column, error) {
			tax := a.Float("income_tax_tu")
			adults := a.Int("n_adults_tu")
			schedule := a.ParamSchedule("solidarity_surcharge.schedule")
			if err := a.Err(); err != nil {
				return nil, err
			}
			out, err := splitting(schedule, "income_tax_tu", tax, adults)
			if err != nil {
				return nil, err
			}
			return a.FloatResult(out), nil
		},
	}
}
