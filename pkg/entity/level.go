package entity

import "fmt"

// Level is the entity scope at which a quantity is defined.
// Levels are ordered: Individual < TaxUnit < Household.
type Level int

const (
	// Individual is one row per person.
	Individual Level = iota

	// TaxUnit groups individuals sharing a tax_unit_id.
	TaxUnit

	// Household groups tax units sharing a household_id.
	Household
)

// Column names of the group keys every input table must carry.
const (
	TaxUnitKey   = "tax_unit_id"
	HouseholdKey = "household_id"
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Individual:
		return "individual"
	case TaxUnit:
		return "tax_unit"
	case Household:
		return "household"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "individual", "":
		return Individual, nil
	case "tax_unit":
		return TaxUnit, nil
	case "household":
		return Household, nil
	default:
		return Individual, fmt.Errorf("unknown entity level %q", s)
	}
}

// Op is a group aggregation operator.
type Op int

const (
	// None means no aggregation.
	None Op = iota
	Sum
	Max
	Min
	Any
	All
)

// String returns the operator name.
func (o Op) String() string {
	switch o {
	case None:
		return "none"
	case Sum:
		return "sum"
	case Max:
		return "max"
	case Min:
		return "min"
	case Any:
		return "any"
	case All:
		return "all"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ParseOp converts an operator name to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "none", "":
		return None, nil
	case "sum":
		return Sum, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	case "any":
		return Any, nil
	case "all":
		return All, nil
	default:
		return None, fmt.Errorf("unknown aggregation %q", s)
	}
}

// Numeric reports whether the operator applies to numeric columns.
func (o Op) Numeric() bool {
	return o == Sum || o == Max || o == Min
}

// Logical reports whether the operator applies to bool columns.
func (o Op) Logical() bool {
	return o == Any || o == All
}
