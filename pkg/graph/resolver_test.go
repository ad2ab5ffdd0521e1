package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
)

var day = rules.Date(2020, 1, 1)

func rule(name string, inputs ...string) *rules.Rule {
	r := &rules.Rule{
		Name:    name,
		Returns: table.KindFloat,
		Compute: func(a *rules.Args) (*table.Column, error) {
			return a.FloatResult(make([]float64, a.Rows())), nil
		},
	}
	for _, in := range inputs {
		r.Inputs = append(r.Inputs, rules.Input{Name: in, Kind: table.KindFloat})
	}
	return r
}

func schema(names ...string) map[string]table.Kind {
	s := make(map[string]table.Kind, len(names))
	for _, n := range names {
		s[n] = table.KindFloat
	}
	return s
}

func registry(t *testing.T, rs ...*rules.Rule) *rules.Registry {
	t.Helper()
	reg := rules.NewRegistry()
	require.NoError(t, reg.RegisterAll(rs...))
	return reg
}

func TestResolve_OrderFollowsDependencies(t *testing.T) {
	reg := registry(t,
		rule("net", "gross", "tax"),
		rule("tax", "gross"),
		rule("gross", "wage", "bonus"),
		rule("bonus", "wage"),
	)
	plan, err := NewResolver(reg).Resolve([]string{"net"}, day, schema("wage"))
	require.NoError(t, err)

	assert.Equal(t, []string{"bonus", "gross", "tax", "net"}, plan.Names())
	assert.Equal(t, []string{"wage"}, plan.Roots)
	assert.Equal(t, [][]string{{"bonus"}, {"gross"}, {"tax"}, {"net"}}, plan.Levels)
	assert.False(t, plan.Parameters)
}

func TestResolve_TieBreakByRegistrationOrder(t *testing.T) {
	reg := registry(t,
		rule("zeta", "wage"),
		rule("alpha", "wage"),
		rule("total", "alpha", "zeta"),
	)
	plan, err := NewResolver(reg).Resolve([]string{"total"}, day, schema("wage"))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "total"}, plan.Names())
	assert.Equal(t, [][]string{{"zeta", "alpha"}, {"total"}}, plan.Levels)
}

func TestResolve_Deterministic(t *testing.T) {
	reg := registry(t,
		rule("a", "wage"), rule("b", "wage"), rule("c", "a", "b"),
		rule("d", "c", "a"), rule("e", "d", "b"),
	)
	r := NewResolver(reg)
	first, err := r.Resolve([]string{"e", "c"}, day, schema("wage"))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := r.Resolve([]string{"c", "e"}, day, schema("wage"))
		require.NoError(t, err)
		assert.Equal(t, first.Names(), again.Names())
		assert.Equal(t, first.Key, again.Key)
	}
}

func TestResolve_ClosureIsMinimal(t *testing.T) {
	base := []*rules.Rule{rule("tax", "wage"), rule("net", "wage", "tax")}
	reg := registry(t, base...)
	plan, err := NewResolver(reg).Resolve([]string{"net"}, day, schema("wage", "rent"))
	require.NoError(t, err)

	withUnrelated := registry(t, append([]*rules.Rule{rule("housing", "rent")}, base...)...)
	plan2, err := NewResolver(withUnrelated).Resolve([]string{"net"}, day, schema("wage", "rent"))
	require.NoError(t, err)

	assert.Equal(t, plan.Names(), plan2.Names())
	assert.NotContains(t, plan2.Names(), "housing")
	assert.Equal(t, []string{"wage"}, plan2.Roots)
}

func TestResolve_RawColumnWinsOverRule(t *testing.T) {
	reg := registry(t, rule("gross", "wage"), rule("net", "gross"))
	plan, err := NewResolver(reg).Resolve([]string{"net"}, day, schema("wage", "gross"))
	require.NoError(t, err)
	assert.Equal(t, []string{"net"}, plan.Names())
	assert.Equal(t, []string{"gross"}, plan.Roots)
}

func TestResolve_ParametersAreRoots(t *testing.T) {
	r := rule("benefit", "wage")
	r.Inputs = append(r.Inputs, rules.Input{Name: rules.ParametersInput})
	reg := registry(t, r)

	plan, err := NewResolver(reg).Resolve([]string{"benefit"}, day, schema("wage"))
	require.NoError(t, err)
	assert.True(t, plan.Parameters)
	assert.Equal(t, []string{"wage"}, plan.Roots)
}

func TestResolve_UnresolvedDependencyCarriesChain(t *testing.T) {
	reg := registry(t,
		rule("net", "tax"),
		rule("tax", "taxable"),
		rule("taxable", "wage", "pension"),
	)
	_, err := NewResolver(reg).Resolve([]string{"net"}, day, schema("wage"))

	var unresolved *UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "pension", unresolved.Name)
	assert.Equal(t, []string{"net", "tax", "taxable"}, unresolved.Chain)
	assert.Nil(t, unresolved.Cause)
	assert.True(t, errors.Is(err, rules.ErrConfiguration))
}

func TestResolve_UnresolvedBecauseOfDate(t *testing.T) {
	late := rule("assistance", "wage")
	late.ValidFrom = rules.Date(2005, 1, 1)
	reg := registry(t, late, rule("total", "assistance"))

	_, err := NewResolver(reg).Resolve([]string{"total"}, rules.Date(1990, 1, 1), schema("wage"))
	var unresolved *UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	var unknown *rules.UnknownRuleError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "assistance", unknown.Name)
}

func TestResolve_UnknownTarget(t *testing.T) {
	reg := registry(t, rule("net", "wage"))
	_, err := NewResolver(reg).Resolve([]string{"missing"}, day, schema("wage"))
	var unknown *rules.UnknownRuleError
	require.ErrorAs(t, err, &unknown)

	_, err = NewResolver(reg).Resolve(nil, day, schema("wage"))
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestResolve_CycleWitness(t *testing.T) {
	reg := registry(t,
		rule("a", "c"),
		rule("b", "a"),
		rule("c", "b"),
		rule("top", "a"),
	)
	_, err := NewResolver(reg).Resolve([]string{"top"}, day, schema())

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
}

func TestResolve_InputKindConflict(t *testing.T) {
	flag := &rules.Rule{
		Name:    "eligible",
		Returns: table.KindBool,
		Inputs:  []rules.Input{{Name: "wage", Kind: table.KindFloat}},
		Compute: func(a *rules.Args) (*table.Column, error) { return a.BoolResult(make([]bool, a.Rows())), nil },
	}
	reg := registry(t, flag, rule("amount", "eligible"))

	_, err := NewResolver(reg).Resolve([]string{"amount"}, day, schema("wage"))
	var kindErr *InputKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, table.KindBool, kindErr.Returned)
}

func TestResolve_SelectsVariantByDate(t *testing.T) {
	old := rule("benefit", "wage")
	old.ValidUntil = rules.Date(2011, 1, 1)
	current := rule("benefit", "wage", "rent")
	current.ValidFrom = rules.Date(2011, 1, 1)
	reg := registry(t, old, current)
	r := NewResolver(reg)

	before, err := r.Resolve([]string{"benefit"}, rules.Date(2010, 12, 31), schema("wage", "rent"))
	require.NoError(t, err)
	assert.Equal(t, []string{"wage"}, before.Roots)

	after, err := r.Resolve([]string{"benefit"}, rules.Date(2011, 1, 1), schema("wage", "rent"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rent", "wage"}, after.Roots)
	assert.NotEqual(t, before.Key, after.Key)
}

func TestPlanCache(t *testing.T) {
	reg := registry(t, rule("a", "wage"), rule("b", "wage"))
	cache := NewPlanCache(1)
	r := NewResolver(reg, WithCache(cache))

	p1, err := r.Resolve([]string{"a"}, day, schema("wage"))
	require.NoError(t, err)
	p2, err := r.Resolve([]string{"a"}, day, schema("wage"))
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	_, err = r.Resolve([]string{"b"}, day, schema("wage"))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)

	// A schema change is a different plan.
	p3, err := r.Resolve([]string{"a"}, day, schema("wage", "rent"))
	require.NoError(t, err)
	assert.NotEqual(t, p1.Key, p3.Key)

	// Registering a rule changes the registry version and the key.
	require.NoError(t, reg.Register(rule("c", "wage")))
	p4, err := r.Resolve([]string{"a"}, day, schema("wage", "rent"))
	require.NoError(t, err)
	assert.NotEqual(t, p3.Key, p4.Key)
}
