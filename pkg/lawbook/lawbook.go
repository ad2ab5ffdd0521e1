package lawbook

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

//go:embed parameters/*.yaml
var parameterFiles embed.FS

// Raw input column names.
const (
	ColAge              = "age"
	ColWage             = "wage"
	ColCapitalIncome    = "capital_income"
	ColRent             = "rent"
	ColDisabilityDegree = "disability_degree"
)

// Schema returns the raw input schema the rules read.
func Schema() map[string]table.Kind {
	return map[string]table.Kind{
		entity.TaxUnitKey:   table.KindInt,
		entity.HouseholdKey: table.KindInt,
		ColAge:              table.KindInt,
		ColWage:             table.KindFloat,
		ColCapitalIncome:    table.KindFloat,
		ColRent:             table.KindFloat,
		ColDisabilityDegree: table.KindInt,
	}
}

// DefaultTargets returns the outputs computed when a caller names none: the
// taxes and the transfers actually granted.
func DefaultTargets() []string {
	return []string{
		"social_insurance_total",
		"income_tax_tu",
		"solidarity_surcharge_tu",
		"child_benefit_paid",
		"housing_benefit_granted_hh",
		"child_supplement_granted_hh",
		"unemployment_assistance_granted_hh",
	}
}

// Rules returns every rule of the law book in registration order.
func Rules() ([]*rules.Rule, error) {
	var out []*rules.Rule
	out = append(out, generalRules()...)
	out = append(out, socialInsuranceRules()...)
	out = append(out, childBenefitRules()...)

	tax, err := incomeTaxRules()
	if err != nil {
		return nil, err
	}
	out = append(out, tax...)
	out = append(out, subsistenceRules()...)

	transfers, err := transferRules()
	if err != nil {
		return nil, err
	}
	return append(out, transfers...), nil
}

// Register adds the law book to reg.
func Register(reg *rules.Registry) error {
	rs, err := Rules()
	if err != nil {
		return err
	}
	if err := reg.RegisterAll(rs...); err != nil {
		return fmt.Errorf("failed to register law book: %w", err)
	}
	return nil
}

// NewRegistry returns a registry holding only the law book.
func NewRegistry() (*rules.Registry, error) {
	reg := rules.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Parameters parses the bundled parameter files.
func Parameters() (*params.Store, error) {
	names, err := fs.Glob(parameterFiles, "parameters/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	store := params.NewStore()
	for _, name := range names {
		data, err := parameterFiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		part, err := params.Parse(data, path.Base(name))
		if err != nil {
			return nil, err
		}
		if err := store.Merge(part); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ParameterFiles exposes the bundled parameter files, e.g. for writing
// them out as a starting point for a parameter directory.
func ParameterFiles() fs.FS {
	sub, _ := fs.Sub(parameterFiles, "parameters")
	return sub
}

func float(name string) rules.Input { return rules.Input{Name: name, Kind: table.KindFloat} }

func integer(name string) rules.Input { return rules.Input{Name: name, Kind: table.KindInt} }

func boolean(name string) rules.Input { return rules.Input{Name: name, Kind: table.KindBool} }

var parameters = rules.Input{Name: rules.ParametersInput}
