// Package rounding applies legally prescribed rounding to computed amounts.
//
// Rounding is performed in exact decimal arithmetic so that values such as
// 0.1 euro steps do not pick up binary floating-point drift. It is applied
// once to a rule's final output, never to intermediate segments.
package rounding

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Direction is the legal rounding direction.
type Direction string

const (
	// Up rounds towards positive infinity.
	Up Direction = "up"

	// Down rounds towards negative infinity.
	Down Direction = "down"

	// Nearest rounds half away from zero.
	Nearest Direction = "nearest"
)

// Spec describes the rounding granularity and direction of one quantity.
type Spec struct {
	// Base is the rounding granularity, e.g. 1 for whole euros or 0.01 for cents.
	Base float64 `yaml:"base"`

	// Direction is the rounding direction.
	Direction Direction `yaml:"direction"`
}

// Validate reports an invalid base or direction.
func (s Spec) Validate() error {
	if s.Base <= 0 {
		return fmt.Errorf("rounding base must be positive, got %v", s.Base)
	}
	switch s.Direction {
	case Up, Down, Nearest:
		return nil
	default:
		return fmt.Errorf("unknown rounding direction %q", s.Direction)
	}
}

// Apply rounds a single value. NaN and infinities are returned unchanged.
func (s Spec) Apply(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	base := decimal.NewFromFloat(s.Base)
	q := decimal.NewFromFloat(v).Div(base)

	switch s.Direction {
	case Up:
		q = q.Ceil()
	case Down:
		q = q.Floor()
	default:
		q = q.Round(0)
	}

	out, _ := q.Mul(base).Float64()
	return out
}

// ApplyAll rounds every value in place.
func (s Spec) ApplyAll(values []float64) {
	for i, v := range values {
		values[i] = s.Apply(v)
	}
}

// Cents converts an amount to an exact decimal with the given number of
// decimal places, for comparisons that must not depend on float noise.
// v must be finite.
func Cents(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}
