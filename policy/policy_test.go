package policy

import (
	"reflect"
	"sort"
	"testing"
)

func TestParseOperatorKey(t *testing.T) {
	tests := []struct {
		key  string
		want Operator
		ok   bool
	}{
		{"eq", OpEquals, true},
		{"$eq", OpEquals, true},
		{"$ne", OpNotEquals, true},
		{"neq", OpNotEquals, true},
		{"$gte", OpGreaterEqual, true},
		{"lte", OpLessEqual, true},
		{"$in", OpIn, true},
		{"nin", OpNotIn, true},
		{"$regex", OpRegex, true},
		{"between", OpBetween, true},
		{"$exists", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseOperatorKey(tt.key)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseOperatorKey(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseConditionDocShorthand(t *testing.T) {
	conds := ParseConditionDoc(map[string]any{"departamento": "TI"})
	if len(conds) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(conds))
	}
	c := conds[0]
	if c.Attribute != "departamento" || c.Operator != OpEquals || c.Value != "TI" {
		t.Errorf("unexpected condition: %+v", c)
	}
}

func TestParseConditionDocNested(t *testing.T) {
	conds := ParseConditionDoc(map[string]any{
		"nivel": map[string]any{"$gte": 3},
		"hour":  map[string]any{"between": []any{8, 18}},
	})
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(conds))
	}

	sort.Slice(conds, func(i, j int) bool { return conds[i].Attribute < conds[j].Attribute })
	if conds[0].Attribute != "hour" || conds[0].Operator != OpBetween {
		t.Errorf("unexpected condition: %+v", conds[0])
	}
	if conds[1].Attribute != "nivel" || conds[1].Operator != OpGreaterEqual {
		t.Errorf("unexpected condition: %+v", conds[1])
	}
}

func TestParseConditionDocUnknownOperatorKept(t *testing.T) {
	conds := ParseConditionDoc(map[string]any{
		"nivel": map[string]any{"$near": 3},
	})
	if len(conds) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(conds))
	}
	if conds[0].Operator != Operator("$near") {
		t.Errorf("expected raw operator key kept, got %q", conds[0].Operator)
	}
}

func TestConditionDocRoundTrip(t *testing.T) {
	doc := map[string]any{
		"departamento": "TI",
		"nivel":        map[string]any{"gte": 3},
	}
	got := ConditionDoc(ParseConditionDoc(doc))
	if !reflect.DeepEqual(got["departamento"], "TI") {
		t.Errorf("departamento = %v", got["departamento"])
	}
	nested, ok := got["nivel"].(map[string]any)
	if !ok || !reflect.DeepEqual(nested["gte"], 3) {
		t.Errorf("nivel = %v", got["nivel"])
	}
}

func TestEffectValid(t *testing.T) {
	if !EffectAllow.Valid() || !EffectDeny.Valid() {
		t.Error("known effects should be valid")
	}
	if Effect("block").Valid() {
		t.Error("unknown effect should be invalid")
	}
}
