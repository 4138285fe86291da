package praetor

import (
	"context"
	"testing"

	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/policy"
)

func TestMatchConditionOperators(t *testing.T) {
	attrs := map[string]any{
		"departamento": "TI",
		"nivel":        4,
		"salario":      "2500.50",
		"email":        "alice@corp.example.com",
		"hour":         14,
	}

	tests := []struct {
		name string
		cond policy.Condition
		want bool
	}{
		{"eq match", policy.Condition{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"}, true},
		{"eq mismatch", policy.Condition{Attribute: "departamento", Operator: policy.OpEquals, Value: "RH"}, false},
		{"eq numeric string", policy.Condition{Attribute: "nivel", Operator: policy.OpEquals, Value: "4"}, true},
		{"neq", policy.Condition{Attribute: "departamento", Operator: policy.OpNotEquals, Value: "RH"}, true},
		{"gt true", policy.Condition{Attribute: "nivel", Operator: policy.OpGreaterThan, Value: 3}, true},
		{"gt false", policy.Condition{Attribute: "nivel", Operator: policy.OpGreaterThan, Value: 4}, false},
		{"gte boundary", policy.Condition{Attribute: "nivel", Operator: policy.OpGreaterEqual, Value: 4}, true},
		{"lt numeric string", policy.Condition{Attribute: "salario", Operator: policy.OpLessThan, Value: 3000}, true},
		{"lte false", policy.Condition{Attribute: "nivel", Operator: policy.OpLessEqual, Value: 3}, false},
		{"in", policy.Condition{Attribute: "departamento", Operator: policy.OpIn, Value: []any{"TI", "RH"}}, true},
		{"in miss", policy.Condition{Attribute: "departamento", Operator: policy.OpIn, Value: []any{"RH", "Vendas"}}, false},
		{"nin", policy.Condition{Attribute: "departamento", Operator: policy.OpNotIn, Value: []any{"RH"}}, true},
		{"regex", policy.Condition{Attribute: "email", Operator: policy.OpRegex, Value: `@corp\.example\.com$`}, true},
		{"regex miss", policy.Condition{Attribute: "email", Operator: policy.OpRegex, Value: `@other\.com$`}, false},
		{"regex malformed", policy.Condition{Attribute: "email", Operator: policy.OpRegex, Value: "[unclosed"}, false},
		{"between inside", policy.Condition{Attribute: "hour", Operator: policy.OpBetween, Value: []any{8, 18}}, true},
		{"between boundary", policy.Condition{Attribute: "hour", Operator: policy.OpBetween, Value: []any{14, 18}}, true},
		{"between outside", policy.Condition{Attribute: "hour", Operator: policy.OpBetween, Value: []any{15, 18}}, false},
		{"between malformed bounds", policy.Condition{Attribute: "hour", Operator: policy.OpBetween, Value: "8-18"}, false},
		{"unknown operator", policy.Condition{Attribute: "departamento", Operator: policy.Operator("$near"), Value: "TI"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(tt.cond, attrs[tt.cond.Attribute]); got != tt.want {
				t.Errorf("matchCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestMatchConditionAbsentAttribute(t *testing.T) {
	// An absent attribute is nil: only neq and nin can hold.
	tests := []struct {
		name string
		cond policy.Condition
		want bool
	}{
		{"eq", policy.Condition{Attribute: "missing", Operator: policy.OpEquals, Value: "TI"}, false},
		{"neq", policy.Condition{Attribute: "missing", Operator: policy.OpNotEquals, Value: "TI"}, true},
		{"gt", policy.Condition{Attribute: "missing", Operator: policy.OpGreaterThan, Value: 1}, false},
		{"in", policy.Condition{Attribute: "missing", Operator: policy.OpIn, Value: []any{"TI"}}, false},
		{"nin", policy.Condition{Attribute: "missing", Operator: policy.OpNotIn, Value: []any{"TI"}}, true},
		{"regex", policy.Condition{Attribute: "missing", Operator: policy.OpRegex, Value: ".*"}, false},
		{"between", policy.Condition{Attribute: "missing", Operator: policy.OpBetween, Value: []any{1, 2}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(tt.cond, nil); got != tt.want {
				t.Errorf("matchCondition(%+v, nil) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestCompareValuesDates(t *testing.T) {
	cmp, ok := compareValues("2024-06-10", "2024-06-11")
	if !ok || cmp != -1 {
		t.Errorf("date compare = (%d, %v)", cmp, ok)
	}
	cmp, ok = compareValues("2024-06-10T15:00:00Z", "2024-06-10T14:00:00Z")
	if !ok || cmp != 1 {
		t.Errorf("timestamp compare = (%d, %v)", cmp, ok)
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	e := DefaultEvaluator()
	policies := []*policy.Policy{
		{
			ID: id.NewPolicyID(), Name: "ti-allow", Effect: policy.EffectAllow,
			Priority: 10, IsActive: true,
			Conditions: []policy.Condition{
				{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"},
			},
		},
		{
			ID: id.NewPolicyID(), Name: "catch-all-deny", Effect: policy.EffectDeny,
			Priority: 1, IsActive: true,
		},
	}

	got := e.Evaluate(context.Background(), policies, map[string]any{"departamento": "TI"})
	if got == nil || got.Name != "ti-allow" {
		t.Fatalf("got %+v", got)
	}

	got = e.Evaluate(context.Background(), policies, map[string]any{"departamento": "RH"})
	if got == nil || got.Name != "catch-all-deny" {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateSkipsInactive(t *testing.T) {
	e := DefaultEvaluator()
	policies := []*policy.Policy{
		{ID: id.NewPolicyID(), Name: "disabled", Effect: policy.EffectDeny, Priority: 10, IsActive: false},
	}
	if got := e.Evaluate(context.Background(), policies, map[string]any{}); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestEvaluateAllConditionsMustHold(t *testing.T) {
	e := DefaultEvaluator()
	policies := []*policy.Policy{
		{
			ID: id.NewPolicyID(), Name: "ti-senior", Effect: policy.EffectAllow,
			Priority: 10, IsActive: true,
			Conditions: []policy.Condition{
				{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"},
				{Attribute: "nivel", Operator: policy.OpGreaterEqual, Value: 3},
			},
		},
	}

	if got := e.Evaluate(context.Background(), policies, map[string]any{"departamento": "TI", "nivel": 4}); got == nil {
		t.Error("expected match with both conditions holding")
	}
	if got := e.Evaluate(context.Background(), policies, map[string]any{"departamento": "TI", "nivel": 2}); got != nil {
		t.Errorf("expected no match, got %+v", got)
	}
}
