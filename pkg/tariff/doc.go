// Package tariff evaluates piecewise polynomial tariffs.
//
// The same bracket structure describes the progressive income-tax tariff, the
// solidarity-surcharge phase-in, and the income disregards of several
// means-tested benefits; only the threshold and rate tables differ.
//
//	s := &tariff.Schedule{
//		Thresholds: []float64{0, 100, 1000, math.Inf(1)},
//		Rates:      []float64{1.0, 0.2, 0},
//	}
//	disregard, err := s.Evaluate(1000) // 100 + 0.2*900 = 280
//
// Each evaluation is a single algebraic expression over the bracket's
// intercept and coefficients, so no rounding accumulates across brackets.
// Negative bases are rejected unless the schedule explicitly allows them.
package tariff
