package params

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/taxsim/pkg/tariff"
)

// metadata keys allowed next to the dated values of a parameter
var metaKeys = map[string]bool{
	"description": true,
	"unit":        true,
	"reference":   true,
}

var scheduleKeys = map[string]bool{
	"thresholds":     true,
	"rates":          true,
	"quadratic":      true,
	"intercepts":     true,
	"floor":          true,
	"top_rate":       true,
	"allow_negative": true,
}

// Parse reads one parameter document:
//
//	group:
//	  parameter:
//	    description: optional text
//	    2020-01-01: 432
//	    2021-01-01: 446
//
// A value is a number, a list of numbers, a map of named numbers, or a
// schedule with thresholds and rates. A null value ends the parameter from
// that date on.
func Parse(data []byte, file string) (*Store, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{File: file, Message: "invalid YAML", Cause: err}
	}

	store := NewStore()
	if root.Kind == 0 || len(root.Content) == 0 {
		return store, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nodeError(file, doc, "top level must map groups to parameters")
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		groupKey, groupNode := doc.Content[i], doc.Content[i+1]
		if groupNode.Kind != yaml.MappingNode {
			return nil, nodeError(file, groupNode, fmt.Sprintf("group %q must map parameter names to dated values", groupKey.Value))
		}

		for j := 0; j+1 < len(groupNode.Content); j += 2 {
			paramKey, paramNode := groupNode.Content[j], groupNode.Content[j+1]
			key := groupKey.Value + "." + paramKey.Value
			if err := parseParameter(store, file, key, paramNode); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}

func parseParameter(store *Store, file, key string, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nodeError(file, node, fmt.Sprintf("parameter %q must map dates to values", key))
	}

	var entries []dated
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if metaKeys[k.Value] {
			continue
		}
		from, err := time.Parse("2006-01-02", k.Value)
		if err != nil {
			return nodeError(file, k, fmt.Sprintf("parameter %q: %q is not a YYYY-MM-DD date", key, k.Value))
		}
		value, err := parseValue(file, key, v)
		if err != nil {
			return err
		}
		entries = append(entries, dated{from: from, value: value})
	}
	if len(entries) == 0 {
		return nodeError(file, node, fmt.Sprintf("parameter %q has no dated values", key))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].from.Before(entries[j].from) })
	store.entries[key] = entries
	store.sources[key] = file
	return nil
}

func parseValue(file, key string, node *yaml.Node) (*Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		if node.Tag != "!!int" && node.Tag != "!!float" {
			return nil, nodeError(file, node, fmt.Sprintf("parameter %q: %q is not a number", key, node.Value))
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, wrapNode(file, node, key, err)
		}
		return &Value{Kind: ScalarValue, Scalar: f}, nil

	case yaml.SequenceNode:
		var list []float64
		if err := node.Decode(&list); err != nil {
			return nil, wrapNode(file, node, key, err)
		}
		return &Value{Kind: ListValue, List: list}, nil

	case yaml.MappingNode:
		if isSchedule(node) {
			return parseSchedule(file, key, node)
		}
		var m map[string]float64
		if err := node.Decode(&m); err != nil {
			return nil, wrapNode(file, node, key, err)
		}
		return &Value{Kind: MapValue, Map: m}, nil

	default:
		return nil, nodeError(file, node, fmt.Sprintf("parameter %q: unsupported value", key))
	}
}

func isSchedule(node *yaml.Node) bool {
	for i := 0; i < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "thresholds", "rates":
			return true
		}
	}
	return false
}

func parseSchedule(file, key string, node *yaml.Node) (*Value, error) {
	for i := 0; i < len(node.Content); i += 2 {
		if k := node.Content[i]; !scheduleKeys[k.Value] {
			return nil, nodeError(file, k, fmt.Sprintf("parameter %q: unknown schedule field %q", key, k.Value))
		}
	}
	var s tariff.Schedule
	if err := node.Decode(&s); err != nil {
		return nil, wrapNode(file, node, key, err)
	}
	if err := s.Validate(); err != nil {
		return nil, wrapNode(file, node, key, err)
	}
	return &Value{Kind: ScheduleValue, Schedule: &s}, nil
}

func nodeError(file string, node *yaml.Node, msg string) error {
	return &ParseError{File: file, Line: node.Line, Column: node.Column, Message: msg}
}

func wrapNode(file string, node *yaml.Node, key string, err error) error {
	return &ParseError{
		File:    file,
		Line:    node.Line,
		Column:  node.Column,
		Message: fmt.Sprintf("parameter %q", key),
		Cause:   err,
	}
}

// LoadFile parses a single parameter file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	return Parse(data, path)
}

// LoadDir parses every *.yaml and *.yml file below dir and merges them.
// A parameter defined in two files is rejected.
func LoadDir(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Message: "failed to stat path", Cause: err}
	}
	if !info.IsDir() {
		return LoadFile(dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: dir, Message: "failed to walk directory", Cause: err}
	}
	sort.Strings(files)

	store := NewStore()
	for _, f := range files {
		s, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		if err := store.Merge(s); err != nil {
			return nil, err
		}
	}
	return store, nil
}
