// Package filter implements the pure SNS filter-policy evaluator (spec.md
// §4.5): a filter policy is matched against either a message's attributes
// or its JSON-parsed body, both represented uniformly as a
// map[string]any "document" so the same matching code serves either
// scope.
package filter

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Policy is a decoded filter policy: a map from key to either a list of
// OR'd conditions, a nested sub-policy (MessageBody scope only), or — at
// the reserved key "$or" — a list of alternative policies.
type Policy map[string]any

// Parse decodes a filter policy's JSON text.
func Parse(policyJSON string) (Policy, error) {
	if strings.TrimSpace(policyJSON) == "" {
		return Policy{}, nil
	}
	var p Policy
	if err := json.Unmarshal([]byte(policyJSON), &p); err != nil {
		return nil, err
	}
	return p, nil
}

// DocumentFromAttributes builds the uniform document from SNS/SQS message
// attributes: Number/Number.* types parse their StringValue, everything
// else is compared as a string (spec.md §4.5).
func DocumentFromAttributes(attrs map[string]Attribute) map[string]any {
	doc := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		if strings.HasPrefix(attr.DataType, "Number") {
			if n, err := strconv.ParseFloat(attr.StringValue, 64); err == nil {
				doc[name] = n
				continue
			}
		}
		doc[name] = attr.StringValue
	}
	return doc
}

// Attribute is the minimal shape filter needs from a message attribute,
// decoupled from the queue package's richer MessageAttributeValue.
type Attribute struct {
	DataType    string
	StringValue string
}

// DocumentFromBody parses the message body as JSON; a non-object or
// unparseable body has no document, and Match returns false for any
// non-empty policy (spec.md §4.5, "MessageBody scope").
func DocumentFromBody(body string) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

// Match evaluates policy against doc. An empty policy always matches (no
// subscription filter).
func Match(policy Policy, doc map[string]any) bool {
	if len(policy) == 0 {
		return true
	}
	return matchPolicy(policy, doc)
}

func matchPolicy(policy map[string]any, doc map[string]any) bool {
	for key, rule := range policy {
		if key == "$or" {
			alternatives, ok := rule.([]any)
			if !ok {
				return false
			}
			matched := false
			for _, alt := range alternatives {
				sub, ok := alt.(map[string]any)
				if ok && matchPolicy(sub, doc) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}

		switch r := rule.(type) {
		case []any:
			if !matchAnyCondition(r, doc, key) {
				return false
			}
		case map[string]any:
			sub, ok := doc[key].(map[string]any)
			if !ok {
				return false
			}
			if !matchPolicy(r, sub) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchAnyCondition(conditions []any, doc map[string]any, key string) bool {
	values, exists := resolveValues(doc, key)
	for _, cond := range conditions {
		if matchCondition(cond, values, exists) {
			return true
		}
	}
	return false
}

func resolveValues(doc map[string]any, key string) ([]any, bool) {
	v, ok := doc[key]
	if !ok {
		return nil, false
	}
	if arr, isArr := v.([]any); isArr {
		return arr, true
	}
	return []any{v}, true
}

func matchCondition(cond any, values []any, exists bool) bool {
	switch c := cond.(type) {
	case nil:
		return !exists
	case string, float64, bool:
		if !exists {
			return false
		}
		for _, v := range values {
			if valuesEqual(v, c) {
				return true
			}
		}
		return false
	case map[string]any:
		return matchConditionObject(c, values, exists)
	}
	return false
}

func matchConditionObject(c map[string]any, values []any, exists bool) bool {
	if want, ok := c["exists"]; ok {
		wantBool, _ := want.(bool)
		return exists == wantBool
	}
	if !exists {
		return false
	}
	if prefix, ok := c["prefix"].(string); ok {
		return anyString(values, func(s string) bool { return strings.HasPrefix(s, prefix) })
	}
	if suffix, ok := c["suffix"].(string); ok {
		return anyString(values, func(s string) bool { return strings.HasSuffix(s, suffix) })
	}
	if eic, ok := c["equals-ignore-case"].(string); ok {
		return anyString(values, func(s string) bool { return strings.EqualFold(s, eic) })
	}
	if wc, ok := c["wildcard"].(string); ok {
		return anyString(values, func(s string) bool { return wildcardMatch(wc, s) })
	}
	if numCond, ok := c["numeric"].([]any); ok {
		return anyNumber(values, func(n float64) bool { return matchNumeric(numCond, n) })
	}
	if ab, ok := c["anything-but"]; ok {
		return matchAnythingBut(ab, values)
	}
	return false
}

func anyString(values []any, pred func(string) bool) bool {
	for _, v := range values {
		if s, ok := v.(string); ok && pred(s) {
			return true
		}
	}
	return false
}

func anyNumber(values []any, pred func(float64) bool) bool {
	for _, v := range values {
		if n, ok := toNumber(v); ok && pred(n) {
			return true
		}
	}
	return false
}

// matchNumeric is a conjunction of (op, n) pairs (spec.md §4.5).
func matchNumeric(pairs []any, n float64) bool {
	if len(pairs)%2 != 0 {
		return false
	}
	for i := 0; i < len(pairs); i += 2 {
		op, ok := pairs[i].(string)
		if !ok {
			return false
		}
		bound, ok := toNumber(pairs[i+1])
		if !ok {
			return false
		}
		switch op {
		case "=":
			if n != bound {
				return false
			}
		case ">":
			if !(n > bound) {
				return false
			}
		case ">=":
			if !(n >= bound) {
				return false
			}
		case "<":
			if !(n < bound) {
				return false
			}
		case "<=":
			if !(n <= bound) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchAnythingBut(ab any, values []any) bool {
	switch x := ab.(type) {
	case map[string]any:
		if prefix, ok := x["prefix"].(string); ok {
			return !anyString(values, func(s string) bool { return strings.HasPrefix(s, prefix) })
		}
		if suffix, ok := x["suffix"].(string); ok {
			return !anyString(values, func(s string) bool { return strings.HasSuffix(s, suffix) })
		}
		if wc, ok := x["wildcard"].(string); ok {
			return !anyString(values, func(s string) bool { return wildcardMatch(wc, s) })
		}
		return false
	case []any:
		for _, v := range values {
			for _, bad := range x {
				if valuesEqual(v, bad) {
					return false
				}
			}
		}
		return true
	default:
		for _, v := range values {
			if valuesEqual(v, x) {
				return false
			}
		}
		return true
	}
}

func valuesEqual(a, b any) bool {
	switch bv := b.(type) {
	case string:
		as, ok := a.(string)
		return ok && as == bv
	case float64:
		af, ok := toNumber(a)
		return ok && af == bv
	case bool:
		ab, ok := a.(bool)
		return ok && ab == bv
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		n, err := strconv.ParseFloat(x, 64)
		return n, err == nil
	}
	return 0, false
}

// wildcardMatch implements greedy glob-style matching where '*' matches
// any sequence of characters (spec.md §4.5).
func wildcardMatch(pattern, s string) bool {
	return wildcardMatchAt(pattern, s, 0, 0)
}

func wildcardMatchAt(pattern, s string, pi, si int) bool {
	for pi < len(pattern) {
		if pattern[pi] == '*' {
			// collapse consecutive stars
			for pi < len(pattern) && pattern[pi] == '*' {
				pi++
			}
			if pi == len(pattern) {
				return true
			}
			for i := si; i <= len(s); i++ {
				if wildcardMatchAt(pattern, s, pi, i) {
					return true
				}
			}
			return false
		}
		if si >= len(s) || pattern[pi] != s[si] {
			return false
		}
		pi++
		si++
	}
	return si == len(s)
}
