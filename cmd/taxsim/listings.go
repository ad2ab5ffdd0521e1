package main

import (
	"strconv"
	"strings"
	"time"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/graph"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/rules"
)

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(rules.DateLayout)
}

func inputNames(r *rules.Rule) string {
	names := make([]string, len(r.Inputs))
	for i, in := range r.Inputs {
		names[i] = in.Name
	}
	return strings.Join(names, " ")
}

// planListing lists the rules of plan in evaluation order with the layer
// each one belongs to.
func planListing(plan *graph.Plan) *cli.Listing {
	layer := make(map[string]int)
	for i, names := range plan.Levels {
		for _, name := range names {
			layer[name] = i
		}
	}

	listing := &cli.Listing{Columns: []string{"step", "layer", "rule", "level", "returns", "valid_from", "valid_until", "inputs"}}
	for i, r := range plan.Order {
		listing.Append(
			strconv.Itoa(i+1),
			strconv.Itoa(layer[r.Name]),
			r.Name,
			r.Level.String(),
			r.Returns.String(),
			formatBound(r.ValidFrom),
			formatBound(r.ValidUntil),
			inputNames(r),
		)
	}
	return listing
}

// ruleListing lists rule variants with their declaration.
func ruleListing(rs []*rules.Rule) *cli.Listing {
	listing := &cli.Listing{Columns: []string{"rule", "level", "returns", "aggregation", "valid_from", "valid_until", "description"}}
	for _, r := range rs {
		listing.Append(
			r.Name,
			r.Level.String(),
			r.Returns.String(),
			r.Aggregation.String(),
			formatBound(r.ValidFrom),
			formatBound(r.ValidUntil),
			r.Description,
		)
	}
	return listing
}

// paramListing lists the parameter values of set whose key starts with
// prefix, with the file each was loaded from.
func paramListing(set *params.Set, store *params.Store, prefix string) (*cli.Listing, error) {
	listing := &cli.Listing{Columns: []string{"key", "kind", "value", "source"}}
	for _, key := range set.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		v, err := set.Value(key)
		if err != nil {
			return nil, err
		}
		listing.Append(key, v.Kind.String(), v.String(), store.Source(key))
	}
	return listing, nil
}
