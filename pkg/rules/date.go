package rules

import (
	"fmt"
	"time"
)

// DateLayout is the layout of policy dates in files and on the command line.
const DateLayout = "2006-01-02"

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD policy date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid policy date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Interval is a half-open validity interval [From, Until). A zero bound is
// unbounded on that side.
type Interval struct {
	From  time.Time
	Until time.Time
}

// Contains reports whether d lies within the interval.
func (iv Interval) Contains(d time.Time) bool {
	if !iv.From.IsZero() && d.Before(iv.From) {
		return false
	}
	if !iv.Until.IsZero() && !d.Before(iv.Until) {
		return false
	}
	return true
}

// Overlaps reports whether two intervals share at least one day.
func (iv Interval) Overlaps(o Interval) bool {
	// a starts before b ends and b starts before a ends.
	return startsBefore(iv.From, o.Until) && startsBefore(o.From, iv.Until)
}

func startsBefore(from, until time.Time) bool {
	if from.IsZero() || until.IsZero() {
		return true
	}
	return from.Before(until)
}

// String formats the interval as [from, until).
func (iv Interval) String() string {
	from, until := "-inf", "+inf"
	if !iv.From.IsZero() {
		from = iv.From.Format(DateLayout)
	}
	if !iv.Until.IsZero() {
		until = iv.Until.Format(DateLayout)
	}
	return fmt.Sprintf("[%s, %s)", from, until)
}
