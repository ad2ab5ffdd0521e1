package params

import (
	"fmt"
	"math"
	"sort"
	"time"

	"mercator-hq/taxsim/pkg/tariff"
)

type dated struct {
	from  time.Time
	value *Value // nil ends the parameter
}

// Store holds every dated value of every parameter. It is built once and is
// read-only afterwards.
type Store struct {
	entries map[string][]dated
	sources map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string][]dated),
		sources: make(map[string]string),
	}
}

// Merge adds the parameters of other. Keys present in both are rejected.
func (s *Store) Merge(other *Store) error {
	for key := range other.entries {
		if _, ok := s.entries[key]; ok {
			return &DuplicateError{Key: key, Files: []string{s.sources[key], other.sources[key]}}
		}
	}
	for key, e := range other.entries {
		s.entries[key] = e
		s.sources[key] = other.sources[key]
	}
	return nil
}

// Keys returns all parameter keys sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of parameters.
func (s *Store) Len() int { return len(s.entries) }

// Source returns the file a parameter was loaded from.
func (s *Store) Source(key string) string { return s.sources[key] }

// At returns the snapshot of every parameter valid at date.
func (s *Store) At(date time.Time) *Set {
	set := &Set{date: date, values: make(map[string]*Value, len(s.entries))}
	for key, entries := range s.entries {
		// last entry starting on or before date
		i := sort.Search(len(entries), func(i int) bool { return entries[i].from.After(date) })
		if i == 0 {
			continue
		}
		if v := entries[i-1].value; v != nil {
			set.values[key] = v
		}
	}
	return set
}

// Set is an immutable parameter snapshot for one policy date.
type Set struct {
	date   time.Time
	values map[string]*Value
}

// NewSet builds a snapshot directly from values, mainly for tests.
func NewSet(date time.Time, values map[string]*Value) *Set {
	copied := make(map[string]*Value, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Set{date: date, values: copied}
}

// Date returns the policy date of the snapshot.
func (s *Set) Date() time.Time { return s.date }

// Has reports whether key has a value at the snapshot date.
func (s *Set) Has(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.values[key]
	return ok
}

// Keys returns the keys present in the snapshot, sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the raw value of key.
func (s *Set) Value(key string) (*Value, error) {
	if s == nil {
		return nil, &MissingError{Key: key}
	}
	v, ok := s.values[key]
	if !ok {
		return nil, &MissingError{Key: key, Date: s.date}
	}
	return v, nil
}

func (s *Set) typed(key string, kind ValueKind) (*Value, error) {
	v, err := s.Value(key)
	if err != nil {
		return nil, err
	}
	if v.Kind != kind {
		return nil, &TypeError{Key: key, Want: kind.String(), Got: v.Kind}
	}
	return v, nil
}

// Float returns a scalar parameter.
func (s *Set) Float(key string) (float64, error) {
	v, err := s.typed(key, ScalarValue)
	if err != nil {
		return 0, err
	}
	return v.Scalar, nil
}

// Int returns a scalar parameter that must be integral.
func (s *Set) Int(key string) (int64, error) {
	v, err := s.typed(key, ScalarValue)
	if err != nil {
		return 0, err
	}
	if v.Scalar != math.Trunc(v.Scalar) {
		return 0, fmt.Errorf("parameter %q: %g is not an integer", key, v.Scalar)
	}
	return int64(v.Scalar), nil
}

// List returns a list parameter. The slice must not be modified.
func (s *Set) List(key string) ([]float64, error) {
	v, err := s.typed(key, ListValue)
	if err != nil {
		return nil, err
	}
	return v.List, nil
}

// Map returns a map parameter. The map must not be modified.
func (s *Set) Map(key string) (map[string]float64, error) {
	v, err := s.typed(key, MapValue)
	if err != nil {
		return nil, err
	}
	return v.Map, nil
}

// Schedule returns a tariff schedule parameter. The schedule must not be
// modified.
func (s *Set) Schedule(key string) (*tariff.Schedule, error) {
	v, err := s.typed(key, ScheduleValue)
	if err != nil {
		return nil, err
	}
	return v.Schedule, nil
}
