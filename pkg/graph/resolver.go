package graph

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"time"

	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

// Plan is the resolved evaluation order for a set of targets at one date.
// Plans are immutable and may be shared between evaluations.
type Plan struct {
	// Key identifies the plan by targets, date, registry version and schema.
	Key string

	// Date is the policy date the variants were selected for.
	Date time.Time

	// Targets are the requested outputs, deduplicated.
	Targets []string

	// Order lists the selected rule variants in evaluation order.
	Order []*rules.Rule

	// Roots are the raw columns the plan reads, sorted.
	Roots []string

	// Levels groups the rules of Order into layers with no dependencies
	// inside a layer.
	Levels [][]string

	// Parameters reports whether any rule consumes the parameter snapshot.
	Parameters bool
}

// Rule returns the planned variant of name.
func (p *Plan) Rule(name string) (*rules.Rule, bool) {
	for _, r := range p.Order {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Names returns the rule names in evaluation order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Order))
	for i, r := range p.Order {
		names[i] = r.Name
	}
	return names
}

// Resolver computes evaluation plans from a rule registry.
type Resolver struct {
	registry *rules.Registry
	cache    *PlanCache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache stores resolved plans in c.
func WithCache(c *PlanCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// NewResolver creates a resolver over registry.
func NewResolver(registry *rules.Registry, opts ...Option) *Resolver {
	r := &Resolver{registry: registry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the plan cache, or nil.
func (r *Resolver) Cache() *PlanCache { return r.cache }

// Resolve computes the minimal plan producing targets from a table with the
// given schema at date.
//
// Raw columns take precedence over rules of the same name and are never
// expanded. The resulting order is a topological sort of the dependency
// closure, with ties broken by registration order.
func (r *Resolver) Resolve(targets []string, date time.Time, schema map[string]table.Kind) (*Plan, error) {
	p, _, err := r.ResolveCached(targets, date, schema)
	return p, err
}

// ResolveCached is Resolve that also reports whether the plan came from the
// cache.
func (r *Resolver) ResolveCached(targets []string, date time.Time, schema map[string]table.Kind) (*Plan, bool, error) {
	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, false, ErrNoTargets
	}

	key := PlanKey(targets, date, r.registry.Version(), schema)
	if r.cache != nil {
		if p, ok := r.cache.Get(key); ok {
			return p, true, nil
		}
	}

	p, err := r.resolve(targets, date, schema)
	if err != nil {
		return nil, false, err
	}
	p.Key = key
	if r.cache != nil {
		r.cache.Put(p)
	}
	return p, false, nil
}

func (r *Resolver) resolve(targets []string, date time.Time, schema map[string]table.Kind) (*Plan, error) {
	selected := make(map[string]*rules.Rule)
	requester := make(map[string]string)
	roots := make(map[string]bool)
	usesParams := false

	queue := append([]string(nil), targets...)
	for _, t := range targets {
		requester[t] = ""
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if _, ok := schema[name]; ok {
			roots[name] = true
			continue
		}
		if _, ok := selected[name]; ok {
			continue
		}

		rule, err := r.registry.Select(name, date)
		if err != nil {
			parent := requester[name]
			if parent == "" {
				return nil, err
			}
			var cause error
			var unknown *rules.UnknownRuleError
			if errors.As(err, &unknown) && unknown.Registered {
				cause = err
			}
			return nil, &UnresolvedDependencyError{
				Name:  name,
				Chain: chain(requester, parent),
				Cause: cause,
			}
		}
		selected[name] = rule

		for _, in := range rule.Inputs {
			if in.Name == rules.ParametersInput {
				usesParams = true
				continue
			}
			if _, seen := requester[in.Name]; !seen {
				requester[in.Name] = name
			}
			queue = append(queue, in.Name)
		}
	}

	if err := checkKinds(selected, schema); err != nil {
		return nil, err
	}

	order, levels, err := r.topoSort(selected, schema)
	if err != nil {
		return nil, err
	}

	rootList := make([]string, 0, len(roots))
	for name := range roots {
		rootList = append(rootList, name)
	}
	sort.Strings(rootList)

	return &Plan{
		Date:       date,
		Targets:    targets,
		Order:      order,
		Roots:      rootList,
		Levels:     levels,
		Parameters: usesParams,
	}, nil
}

// chain walks the requester links from name up to its target.
func chain(requester map[string]string, name string) []string {
	var out []string
	for cur := name; cur != ""; cur = requester[cur] {
		out = append(out, cur)
		if len(out) > len(requester) {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// checkKinds verifies that rule-to-rule edges agree on the column kind.
// Raw column kinds are checked against the data at evaluation time.
func checkKinds(selected map[string]*rules.Rule, schema map[string]table.Kind) error {
	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, in := range selected[name].Dependencies() {
			if _, raw := schema[in.Name]; raw {
				continue
			}
			producer := selected[in.Name]
			if producer.Returns != in.Kind {
				return &InputKindError{
					Rule:     name,
					Input:    in.Name,
					Declared: in.Kind,
					Returned: producer.Returns,
				}
			}
		}
	}
	return nil
}

func (r *Resolver) topoSort(selected map[string]*rules.Rule, schema map[string]table.Kind) ([]*rules.Rule, [][]string, error) {
	nodes := make([]*rules.Rule, 0, len(selected))
	for _, rule := range selected {
		nodes = append(nodes, rule)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return r.registry.Order(nodes[i].Name) < r.registry.Order(nodes[j].Name)
	})

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.Name] = i
	}

	g := newDAG(len(nodes))
	for i, n := range nodes {
		for _, in := range n.Dependencies() {
			if _, raw := schema[in.Name]; raw {
				continue
			}
			g.addEdge(index[in.Name], i)
		}
	}

	order, depth := g.topoOrder()
	if len(order) != len(nodes) {
		cycle := g.findCycle()
		path := make([]string, len(cycle))
		for i, idx := range cycle {
			path[i] = nodes[idx].Name
		}
		return nil, nil, &CycleError{Path: path}
	}

	out := make([]*rules.Rule, len(order))
	var levels [][]string
	for i, idx := range order {
		out[i] = nodes[idx]
		d := depth[idx]
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], nodes[idx].Name)
	}
	return out, levels, nil
}

// PlanKey derives the cache key of a plan request.
func PlanKey(targets []string, date time.Time, version string, schema map[string]table.Kind) string {
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)

	cols := make([]string, 0, len(schema))
	for name := range schema {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	h := sha256.New()
	fmt.Fprintf(h, "v=%s;d=%s;t=", version, date.Format(rules.DateLayout))
	for _, t := range sorted {
		fmt.Fprintf(h, "%s,", t)
	}
	h.Write([]byte(";s="))
	for _, c := range cols {
		fmt.Fprintf(h, "%s:%s,", c, schema[c])
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:32]
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
