// Package policy defines attribute-based policies and their store
// interface. A policy attaches an ordered condition set to a permission
// code; the highest-priority policy whose conditions all hold decides the
// outcome.
package policy

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Effect is the outcome a matching policy forces.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Valid reports whether the effect is one of the two known values.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Operator is a closed comparison operator set. Conditions parsed from
// stored documents with an unrecognized operator key keep the raw key and
// never match.
type Operator string

const (
	OpEquals       Operator = "eq"
	OpNotEquals    Operator = "neq"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpIn           Operator = "in"
	OpNotIn        Operator = "nin"
	OpRegex        Operator = "regex"
	OpBetween      Operator = "between"
)

var operatorKeys = map[string]Operator{
	"eq":       OpEquals,
	"$eq":      OpEquals,
	"neq":      OpNotEquals,
	"$ne":      OpNotEquals,
	"$neq":     OpNotEquals,
	"gt":       OpGreaterThan,
	"$gt":      OpGreaterThan,
	"gte":      OpGreaterEqual,
	"$gte":     OpGreaterEqual,
	"lt":       OpLessThan,
	"$lt":      OpLessThan,
	"lte":      OpLessEqual,
	"$lte":     OpLessEqual,
	"in":       OpIn,
	"$in":      OpIn,
	"nin":      OpNotIn,
	"$nin":     OpNotIn,
	"regex":    OpRegex,
	"$regex":   OpRegex,
	"between":  OpBetween,
	"$between": OpBetween,
}

// ParseOperatorKey maps a stored operator key to its canonical Operator.
// The second return is false for unrecognized keys.
func ParseOperatorKey(key string) (Operator, bool) {
	op, ok := operatorKeys[key]
	return op, ok
}

// Condition is a single attribute comparison. All of a policy's conditions
// must hold for the policy to match; a policy with no conditions matches
// every request.
type Condition struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value"`
}

// Policy is one ABAC rule for a permission code.
type Policy struct {
	ID             id.PolicyID `json:"id" db:"id"`
	PermissionCode string      `json:"permission_code" db:"permission_code"`
	Name           string      `json:"name" db:"name"`
	Description    string      `json:"description,omitempty" db:"description"`
	Effect         Effect      `json:"effect" db:"effect"`
	Priority       int         `json:"priority" db:"priority"`
	IsActive       bool        `json:"is_active" db:"is_active"`
	Conditions     []Condition `json:"conditions" db:"conditions"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// ParseConditionDoc converts a stored condition document into a condition
// list. Each document entry maps an attribute name either to a bare value
// (shorthand for equality) or to a nested {operator: value} map. Operator
// keys that are not recognized are kept verbatim so the condition fails at
// evaluation instead of being silently dropped.
//
//	{"departamento": "TI"}                     -> departamento eq "TI"
//	{"nivel": {"$gte": 3}}                     -> nivel gte 3
//	{"hour": {"between": [8, 18]}}             -> hour between [8 18]
func ParseConditionDoc(doc map[string]any) []Condition {
	conds := make([]Condition, 0, len(doc))
	for attr, raw := range doc {
		nested, ok := raw.(map[string]any)
		if !ok {
			conds = append(conds, Condition{Attribute: attr, Operator: OpEquals, Value: raw})
			continue
		}
		for key, val := range nested {
			op, known := ParseOperatorKey(key)
			if !known {
				op = Operator(key)
			}
			conds = append(conds, Condition{Attribute: attr, Operator: op, Value: val})
		}
	}
	return conds
}

// ConditionDoc renders the condition list back into the stored document
// form, the inverse of ParseConditionDoc for canonical operators.
func ConditionDoc(conds []Condition) map[string]any {
	doc := make(map[string]any, len(conds))
	for _, c := range conds {
		if c.Operator == OpEquals {
			if _, nested := doc[c.Attribute]; !nested {
				doc[c.Attribute] = c.Value
				continue
			}
		}
		nested, ok := doc[c.Attribute].(map[string]any)
		if !ok {
			if prev, exists := doc[c.Attribute]; exists {
				nested = map[string]any{string(OpEquals): prev}
			} else {
				nested = make(map[string]any, 1)
			}
			doc[c.Attribute] = nested
		}
		nested[string(c.Operator)] = c.Value
	}
	return doc
}

// ListFilter narrows policy listings. Zero fields match everything.
type ListFilter struct {
	PermissionCode string
	Effect         Effect
	IsActive       *bool
	Search         string
	Limit          int
	Offset         int
}
