package tariff

import (
	"math"
	"sort"
)

// Schedule is a piecewise polynomial tariff.
//
// Bracket i covers [Thresholds[i], Thresholds[i+1]). Within it the value is
//
//	Intercepts[i] + Rates[i]*d + Quadratic[i]*d*d,  d = x - Thresholds[i]
//
// so Rates[i] is the marginal rate at the bracket's lower edge and
// Intercepts[i] the cumulative value there. The last threshold may be +Inf.
type Schedule struct {
	// Thresholds are the strictly increasing bracket edges; len(Rates)+1 entries.
	Thresholds []float64 `yaml:"thresholds" json:"thresholds"`

	// Rates are the linear coefficients per bracket.
	Rates []float64 `yaml:"rates" json:"rates"`

	// Quadratic are the optional quadratic coefficients per bracket.
	Quadratic []float64 `yaml:"quadratic,omitempty" json:"quadratic,omitempty"`

	// Intercepts are the values at each bracket's lower edge. When empty they
	// are derived for continuity starting from zero.
	Intercepts []float64 `yaml:"intercepts,omitempty" json:"intercepts,omitempty"`

	// Floor is returned for x below the first threshold.
	Floor float64 `yaml:"floor,omitempty" json:"floor,omitempty"`

	// TopRate, if set, is the marginal rate beyond the last finite threshold.
	// Without it, the final bracket is extrapolated.
	TopRate *float64 `yaml:"top_rate,omitempty" json:"top_rate,omitempty"`

	// AllowNegative permits negative bases, which are otherwise rejected.
	AllowNegative bool `yaml:"allow_negative,omitempty" json:"allow_negative,omitempty"`
}

// Validate checks the structural consistency of the schedule.
func (s *Schedule) Validate() error {
	n := len(s.Rates)
	if n == 0 {
		return &ScheduleError{Message: "at least one bracket is required"}
	}
	if len(s.Thresholds) != n+1 {
		return &ScheduleError{Message: "thresholds must have one more entry than rates"}
	}
	if len(s.Quadratic) != 0 && len(s.Quadratic) != n {
		return &ScheduleError{Message: "quadratic must be empty or match rates"}
	}
	if len(s.Intercepts) != 0 && len(s.Intercepts) != n {
		return &ScheduleError{Message: "intercepts must be empty or match rates"}
	}
	for i, t := range s.Thresholds {
		if math.IsNaN(t) || math.IsInf(t, -1) {
			return &ScheduleError{Message: "thresholds must be finite or +Inf", Index: i}
		}
		if i > 0 && t <= s.Thresholds[i-1] {
			return &ScheduleError{Message: "thresholds must be strictly increasing", Index: i}
		}
	}
	if math.IsInf(s.Thresholds[0], 1) {
		return &ScheduleError{Message: "first threshold must be finite"}
	}
	for i := 0; i < n-1; i++ {
		if math.IsInf(s.Thresholds[i+1], 1) {
			return &ScheduleError{Message: "only the last threshold may be +Inf", Index: i + 1}
		}
	}
	return nil
}

// Brackets returns the number of brackets.
func (s *Schedule) Brackets() int { return len(s.Rates) }

func (s *Schedule) quad(i int) float64 {
	if len(s.Quadratic) == 0 {
		return 0
	}
	return s.Quadratic[i]
}

// segment evaluates bracket i at distance d from its lower edge.
func (s *Schedule) segment(i int, intercept, mult, d float64) float64 {
	return intercept + mult*(s.Rates[i]*d+s.quad(i)*d*d)
}

// intercepts returns the intercepts to use for a given rate multiplier.
// Explicit intercepts are used as-is when mult is 1; otherwise the chain is
// recomputed for continuity from the (scaled) first intercept.
func (s *Schedule) intercepts(mult float64) []float64 {
	if len(s.Intercepts) != 0 && mult == 1 {
		return s.Intercepts
	}
	first := 0.0
	if len(s.Intercepts) != 0 {
		first = s.Intercepts[0] * mult
	}
	return ContinuousIntercepts(s.Thresholds, s.Rates, s.Quadratic, first, mult)
}

// Evaluate computes the tariff at x with a rate multiplier of 1.
func (s *Schedule) Evaluate(x float64) (float64, error) {
	return s.EvaluateScaled(x, 1)
}

// EvaluateScaled computes the tariff at x with all polynomial coefficients
// multiplied by mult.
func (s *Schedule) EvaluateScaled(x, mult float64) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s.eval(x, mult, s.intercepts(mult))
}

func (s *Schedule) eval(x, mult float64, icpt []float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, &BaseError{Value: x, Message: "base must be finite"}
	}
	if x < 0 && !s.AllowNegative {
		return 0, &BaseError{Value: x, Message: "negative base"}
	}
	if x < s.Thresholds[0] {
		return s.Floor, nil
	}

	n := len(s.Rates)
	top := s.Thresholds[n]
	if x >= top && s.TopRate != nil {
		last := n - 1
		atTop := s.segment(last, icpt[last], mult, top-s.Thresholds[last])
		return atTop + mult*(*s.TopRate)*(x-top), nil
	}

	// Index of the last lower edge <= x, clamped to the final bracket.
	i := sort.SearchFloat64s(s.Thresholds[:n], x)
	if i == n || s.Thresholds[i] > x {
		i--
	}
	return s.segment(i, icpt[i], mult, x-s.Thresholds[i]), nil
}

// EvaluateColumn evaluates every value of xs. Negative or non-finite bases are
// collected and reported together with their row numbers.
func (s *Schedule) EvaluateColumn(xs []float64, mult float64) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	icpt := s.intercepts(mult)

	out := make([]float64, len(xs))
	var bad []int
	var firstErr error
	for row, x := range xs {
		v, err := s.eval(x, mult, icpt)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			bad = append(bad, row)
			continue
		}
		out[row] = v
	}
	if len(bad) > 0 {
		return nil, &ColumnError{Rows: bad, Cause: firstErr}
	}
	return out, nil
}

// ContinuousIntercepts computes intercepts so that adjacent brackets join
// without a jump, starting from first at Thresholds[0].
func ContinuousIntercepts(thresholds, rates, quadratic []float64, first, mult float64) []float64 {
	n := len(rates)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = first
	for i := 1; i < n; i++ {
		d := thresholds[i] - thresholds[i-1]
		q := 0.0
		if len(quadratic) != 0 {
			q = quadratic[i-1]
		}
		out[i] = out[i-1] + mult*(rates[i-1]*d+q*d*d)
	}
	return out
}

// CheckContinuity reports the first interior threshold at which the explicit
// intercepts leave a jump larger than tol.
func (s *Schedule) CheckContinuity(tol float64) error {
	if err := s.Validate(); err != nil {
		return err
	}
	icpt := s.intercepts(1)
	for i := 1; i < len(s.Rates); i++ {
		d := s.Thresholds[i] - s.Thresholds[i-1]
		left := s.segment(i-1, icpt[i-1], 1, d)
		if math.Abs(left-icpt[i]) > tol {
			return &ScheduleError{
				Message: "discontinuous at threshold",
				Index:   i,
				Jump:    icpt[i] - left,
			}
		}
	}
	return nil
}
