package rules

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Registry stores dated rule variants per name.
//
// Writers are serialized and publish a new immutable snapshot on every
// change, so readers never take a lock and an in-flight evaluation keeps the
// snapshot it started with.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	// variants per name, sorted by ValidFrom
	variants map[string][]*Rule

	// names in registration order of their first variant
	names   []string
	order   map[string]int
	version string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	s := &snapshot{
		variants: make(map[string][]*Rule),
		order:    make(map[string]int),
	}
	s.version = s.hash()
	r.snap.Store(s)
	return r
}

func (r *Registry) load() *snapshot { return r.snap.Load() }

// Register adds a dated variant of a rule. A variant whose interval overlaps
// an existing variant of the same name is rejected with AmbiguousRuleError.
func (r *Registry) Register(rule *Rule) error {
	if rule == nil {
		return &RuleError{Message: "rule cannot be nil"}
	}
	if err := rule.validate(); err != nil {
		return err
	}
	rule = rule.clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	existing := cur.variants[rule.Name]
	for _, v := range existing {
		if v.Interval().Overlaps(rule.Interval()) {
			return &AmbiguousRuleError{Name: rule.Name, First: v.Interval(), Second: rule.Interval()}
		}
	}

	next := &snapshot{
		variants: make(map[string][]*Rule, len(cur.variants)+1),
		names:    cur.names,
		order:    cur.order,
	}
	for name, vs := range cur.variants {
		next.variants[name] = vs
	}

	vs := make([]*Rule, 0, len(existing)+1)
	vs = append(vs, existing...)
	vs = append(vs, rule)
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].ValidFrom.Before(vs[j].ValidFrom) })
	next.variants[rule.Name] = vs

	if _, ok := cur.order[rule.Name]; !ok {
		next.order = make(map[string]int, len(cur.order)+1)
		for name, i := range cur.order {
			next.order[name] = i
		}
		next.order[rule.Name] = len(cur.names)
		next.names = append(append([]string(nil), cur.names...), rule.Name)
	}

	next.version = next.hash()
	r.snap.Store(next)
	return nil
}

// RegisterAll registers rules in order and stops at the first error.
func (r *Registry) RegisterAll(rules ...*Rule) error {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// Select returns the variant of name whose interval contains date.
func (r *Registry) Select(name string, date time.Time) (*Rule, error) {
	vs, ok := r.load().variants[name]
	if !ok {
		return nil, &UnknownRuleError{Name: name, Date: date}
	}

	// First variant starting after date; the candidate is the one before it.
	i := sort.Search(len(vs), func(i int) bool {
		return !vs[i].ValidFrom.IsZero() && vs[i].ValidFrom.After(date)
	})
	if i == 0 || !vs[i-1].Interval().Contains(date) {
		return nil, &UnknownRuleError{Name: name, Date: date, Registered: true}
	}
	return vs[i-1], nil
}

// Has reports whether any variant of name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.load().variants[name]
	return ok
}

// HasAt reports whether a variant of name is valid at date.
func (r *Registry) HasAt(name string, date time.Time) bool {
	_, err := r.Select(name, date)
	return err == nil
}

// Names returns all rule names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.load().names...)
}

// Variants returns the variants of name sorted by start date.
func (r *Registry) Variants(name string) []*Rule {
	return append([]*Rule(nil), r.load().variants[name]...)
}

// ValidAt returns every rule variant valid at date in registration order.
func (r *Registry) ValidAt(date time.Time) []*Rule {
	s := r.load()
	out := make([]*Rule, 0, len(s.names))
	for _, name := range s.names {
		if rule, err := r.Select(name, date); err == nil {
			out = append(out, rule)
		}
	}
	return out
}

// Order returns the registration position of name, or -1.
func (r *Registry) Order(name string) int {
	i, ok := r.load().order[name]
	if !ok {
		return -1
	}
	return i
}

// Count returns the number of registered names.
func (r *Registry) Count() int {
	return len(r.load().names)
}

// Version returns a content hash of the registered declarations. It changes
// whenever a variant is added.
func (r *Registry) Version() string {
	return r.load().version
}

// Validate sweeps every name for overlapping variants and for gaps between
// consecutive variants. Gaps before the first and after the last variant are
// allowed: a quantity may be introduced or abolished.
func (r *Registry) Validate() error {
	s := r.load()
	var errs ValidationErrors
	for _, name := range s.names {
		vs := s.variants[name]
		for i := 1; i < len(vs); i++ {
			prev, cur := vs[i-1].Interval(), vs[i].Interval()
			switch {
			case prev.Overlaps(cur):
				errs = append(errs, &AmbiguousRuleError{Name: name, First: prev, Second: cur})
			case !prev.Until.Equal(cur.From):
				errs = append(errs, &IntervalGapError{
					Name: name,
					Gap:  Interval{From: prev.Until, Until: cur.From},
				})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// hash computes the snapshot version from the declarations in registration order.
func (s *snapshot) hash() string {
	h := sha256.New()
	for _, name := range s.names {
		for _, v := range s.variants[name] {
			fmt.Fprintf(h, "%s|%s|%s|%s|%s|", v.Name, v.Interval(), v.Returns, v.Level, v.Aggregation)
			for _, in := range v.Inputs {
				fmt.Fprintf(h, "%s:%s,", in.Name, in.Kind)
			}
			if v.Rounding != nil {
				fmt.Fprintf(h, "|%g:%s", v.Rounding.Base, v.Rounding.Direction)
			}
			h.Write([]byte{'\n'})
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
