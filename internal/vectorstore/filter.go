package vectorstore

import (
	"fmt"
	"sort"
	"strings"
)

// Filter operators supported by the payload filter DSL. A filter maps
// payload keys to either a literal (equality) or an operator object:
//
//	{"category": "guide"}                      equality
//	{"category": {"$in": ["guide", "api"]}}    membership
//	{"status": {"$ne": "archived"}}            exclusion
//	{"stars": {"$gte": 100, "$lt": 500}}       range (combinable)
//
// Multiple keys combine with AND. Nested boolean composition ($or,
// $and) is not portable across backends and is rejected.
const (
	opIn  = "$in"
	opNe  = "$ne"
	opGt  = "$gt"
	opGte = "$gte"
	opLt  = "$lt"
	opLte = "$lte"
)

// filterClause is one parsed condition on a payload key. op is empty
// for equality; values holds the operand list for $in; value holds the
// operand for every other operator.
type filterClause struct {
	key    string
	op     string
	value  any
	values []any
}

// parseFilters normalizes a filter mapping into an ordered clause
// list. Keys are processed in sorted order so errors and translations
// are deterministic.
func parseFilters(filters map[string]any) ([]filterClause, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]filterClause, 0, len(filters))
	for _, key := range keys {
		if strings.HasPrefix(key, "$") {
			return nil, fmt.Errorf("%w: boolean composition %q is not supported; combine keys for AND", ErrInvalidFilter, key)
		}

		value := filters[key]
		obj, ok := value.(map[string]any)
		if !ok {
			clauses = append(clauses, filterClause{key: key, value: value})
			continue
		}

		if len(obj) == 0 {
			return nil, fmt.Errorf("%w: empty operator object for key %q", ErrInvalidFilter, key)
		}

		ops := make([]string, 0, len(obj))
		for op := range obj {
			ops = append(ops, op)
		}
		sort.Strings(ops)

		for _, op := range ops {
			operand := obj[op]
			switch op {
			case opIn:
				values, err := toValueList(operand)
				if err != nil {
					return nil, fmt.Errorf("%w: %q for key %q: %v", ErrInvalidFilter, opIn, key, err)
				}
				clauses = append(clauses, filterClause{key: key, op: opIn, values: values})
			case opNe, opGt, opGte, opLt, opLte:
				clauses = append(clauses, filterClause{key: key, op: op, value: operand})
			default:
				return nil, fmt.Errorf("%w: unsupported operator %q for key %q", ErrInvalidFilter, op, key)
			}
		}
	}

	return clauses, nil
}

// parseEqualityFilters parses a filter but rejects every operator
// clause. The embedded backend supports only native equality matches.
func parseEqualityFilters(filters map[string]any) ([]filterClause, error) {
	clauses, err := parseFilters(filters)
	if err != nil {
		return nil, err
	}
	for _, c := range clauses {
		if c.op != "" {
			return nil, fmt.Errorf("%w: operator %q on key %q is not supported by the embedded backend", ErrInvalidFilter, c.op, c.key)
		}
	}
	return clauses, nil
}

// toValueList accepts the common slice shapes an $in operand arrives
// as (decoded JSON gives []any; Go callers often pass typed slices).
func toValueList(operand any) ([]any, error) {
	var out []any
	switch v := operand.(type) {
	case []any:
		out = v
	case []string:
		out = make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
	case []int:
		out = make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
	case []int64:
		out = make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
	case []float64:
		out = make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
	default:
		return nil, fmt.Errorf("operand must be a list, got %T", operand)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("operand list cannot be empty")
	}
	return out, nil
}

// toFloat64 widens numeric filter operands for range conditions.
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
	default:
		return 0, false
	}
}
