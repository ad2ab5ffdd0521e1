package params

import (
	"fmt"
	"sort"

	"mercator-hq/taxsim/pkg/tariff"
)

// ValueKind is the shape of a parameter value.
type ValueKind int

const (
	// ScalarValue is a single number.
	ScalarValue ValueKind = iota + 1

	// ListValue is an ordered list of numbers, e.g. amounts by child rank.
	ListValue

	// MapValue is a set of named numbers, e.g. standard rates by person type.
	MapValue

	// ScheduleValue is a piecewise tariff.
	ScheduleValue
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case ScalarValue:
		return "scalar"
	case ListValue:
		return "list"
	case MapValue:
		return "map"
	case ScheduleValue:
		return "schedule"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one dated parameter value. Values are shared between snapshots and
// must not be modified.
type Value struct {
	Kind     ValueKind
	Scalar   float64
	List     []float64
	Map      map[string]float64
	Schedule *tariff.Schedule
}

// String formats the value for display.
func (v *Value) String() string {
	switch v.Kind {
	case ScalarValue:
		return fmt.Sprintf("%g", v.Scalar)
	case ListValue:
		return fmt.Sprintf("%v", v.List)
	case MapValue:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%s: %g", k, v.Map[k])
		}
		return out + "}"
	case ScheduleValue:
		s := v.Schedule
		return fmt.Sprintf("schedule(thresholds=%v, rates=%v)", s.Thresholds, s.Rates)
	default:
		return "<invalid>"
	}
}
