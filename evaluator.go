package praetor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/praetorhq/praetor/cache"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/user"
)

// patterns caches compiled regex conditions across evaluations.
var patterns = cache.NewPatterns()

// Evaluator selects the policy that decides an ABAC check.
type Evaluator interface {
	// Evaluate walks policies in the given order and returns the first one
	// whose conditions all hold against attrs, or nil when none match.
	Evaluate(ctx context.Context, policies []*policy.Policy, attrs map[string]any) *policy.Policy
}

// DefaultEvaluator returns the built-in condition evaluator.
func DefaultEvaluator() Evaluator {
	return &conditionEvaluator{}
}

type conditionEvaluator struct{}

func (e *conditionEvaluator) Evaluate(_ context.Context, policies []*policy.Policy, attrs map[string]any) *policy.Policy {
	for _, pol := range policies {
		if !pol.IsActive {
			continue
		}
		if matchConditions(pol.Conditions, attrs) {
			return pol
		}
	}
	return nil
}

// matchConditions requires every condition to hold. An empty condition set
// matches everything, which is how catch-all policies are written.
func matchConditions(conds []policy.Condition, attrs map[string]any) bool {
	for _, c := range conds {
		if !matchCondition(c, attrs[c.Attribute]) {
			return false
		}
	}
	return true
}

// matchCondition evaluates a single comparison. An absent attribute is nil:
// only neq and nin can hold against it. Unknown operators never hold.
func matchCondition(c policy.Condition, actual any) bool {
	switch c.Operator {
	case policy.OpEquals:
		return equalValues(actual, c.Value)
	case policy.OpNotEquals:
		return !equalValues(actual, c.Value)
	case policy.OpGreaterThan:
		cmp, ok := compareValues(actual, c.Value)
		return ok && cmp > 0
	case policy.OpGreaterEqual:
		cmp, ok := compareValues(actual, c.Value)
		return ok && cmp >= 0
	case policy.OpLessThan:
		cmp, ok := compareValues(actual, c.Value)
		return ok && cmp < 0
	case policy.OpLessEqual:
		cmp, ok := compareValues(actual, c.Value)
		return ok && cmp <= 0
	case policy.OpIn:
		return inSet(actual, c.Value)
	case policy.OpNotIn:
		return !inSet(actual, c.Value)
	case policy.OpRegex:
		return regexMatch(actual, c.Value)
	case policy.OpBetween:
		return betweenValues(actual, c.Value)
	default:
		return false
	}
}

func equalValues(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

// compareValues orders actual against expected: numerically when both parse
// as numbers, then as timestamps, then lexically. The second return is
// false when no ordering applies.
func compareValues(actual, expected any) (int, bool) {
	if actual == nil || expected == nil {
		return 0, false
	}

	af, aok := toFloat64(actual)
	ef, eok := toFloat64(expected)
	if aok && eok {
		switch {
		case af < ef:
			return -1, true
		case af > ef:
			return 1, true
		default:
			return 0, true
		}
	}

	at, aok := toTime(actual)
	et, eok := toTime(expected)
	if aok && eok {
		switch {
		case at.Before(et):
			return -1, true
		case at.After(et):
			return 1, true
		default:
			return 0, true
		}
	}

	as, es := fmt.Sprint(actual), fmt.Sprint(expected)
	switch {
	case as < es:
		return -1, true
	case as > es:
		return 1, true
	default:
		return 0, true
	}
}

func inSet(actual, expected any) bool {
	if actual == nil {
		return false
	}
	needle := fmt.Sprint(actual)
	switch set := expected.(type) {
	case []any:
		for _, v := range set {
			if fmt.Sprint(v) == needle {
				return true
			}
		}
	case []string:
		for _, v := range set {
			if v == needle {
				return true
			}
		}
	}
	return false
}

// regexMatch resolves the pattern through the compiled-pattern cache. A
// malformed pattern is a non-match, never an error, so a bad policy cannot
// wedge a permission.
func regexMatch(actual, pattern any) bool {
	if actual == nil {
		return false
	}
	re, err := patterns.Get(fmt.Sprint(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprint(actual))
}

func betweenValues(actual, bounds any) bool {
	pair, ok := bounds.([]any)
	if !ok || len(pair) != 2 {
		return false
	}
	lo, okLo := compareValues(actual, pair[0])
	hi, okHi := compareValues(actual, pair[1])
	return okLo && okHi && lo >= 0 && hi <= 0
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// evaluationContext assembles the attribute map a policy is evaluated
// against: stored user attributes, role and group names, caller-supplied
// rules (which shadow stored attributes on key collision), and request
// environment.
func (g *Guard) evaluationContext(profile *user.AttributeProfile, rules map[string]any, meta RequestMeta) map[string]any {
	size := len(rules) + 5
	if profile != nil {
		size += len(profile.Attributes)
	}
	attrs := make(map[string]any, size)
	if profile != nil {
		for k, v := range profile.Attributes {
			attrs[k] = v
		}
		attrs["roles"] = profile.Roles
		attrs["groups"] = profile.Groups
	}
	for k, v := range rules {
		attrs[k] = v
	}
	now := g.now()
	attrs["ip"] = meta.IP
	attrs["hour"] = now.Hour()
	attrs["weekday"] = int(now.Weekday())
	return attrs
}
