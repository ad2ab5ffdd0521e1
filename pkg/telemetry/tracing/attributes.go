package tracing

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "taxsim.*" namespace.
const (
	// Evaluation attributes
	AttrRunID      = "taxsim.run_id"
	AttrPolicyDate = "taxsim.policy_date"
	AttrRows       = "taxsim.rows"
	AttrTargets    = "taxsim.targets"

	// Plan attributes
	AttrPlanKey   = "taxsim.plan.key"
	AttrPlanRules = "taxsim.plan.rules"

	// Rule attributes
	AttrRule      = "taxsim.rule"
	AttrRuleLevel = "taxsim.rule.level"
)

// EvaluationAttributes returns the attributes of an evaluation span.
func EvaluationAttributes(runID string, date time.Time, rows int, targets []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Int(AttrRows, rows),
		attribute.String(AttrTargets, strings.Join(targets, ",")),
	}
	if !date.IsZero() {
		attrs = append(attrs, attribute.String(AttrPolicyDate, date.Format("2006-01-02")))
	}
	return attrs
}

// PlanAttributes returns the attributes describing a resolved plan.
func PlanAttributes(key string, rules int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrPlanKey, key),
		attribute.Int(AttrPlanRules, rules),
	}
}

// RuleAttributes returns the attributes of a rule span.
func RuleAttributes(rule, level string, rows int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRule, rule),
		attribute.String(AttrRuleLevel, level),
		attribute.Int(AttrRows, rows),
	}
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
	span.RecordError(err)
}

// SetStatus sets the span status based on an error.
// If err is nil, status is set to OK, otherwise to Error.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// EndSpan records err on the span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	SetError(span, err)
	SetStatus(span, err)
	span.End()
}
