package filter

import (
	"strings"

	"github.com/edgevec/edgevec/internal/metadata"
)

// Evaluate reports whether meta satisfies expr. A missing attribute makes
// any comparison false, except IS NULL which is true for a missing
// attribute. AND/OR short-circuit.
func Evaluate(expr Node, meta map[string]metadata.Value) bool {
	switch e := expr.(type) {
	case Comparison:
		v, ok := meta[e.Attr]
		if !ok {
			return false
		}
		return evalComparison(e.Op, v, e.Val)

	case Between:
		v, ok := meta[e.Attr]
		if !ok {
			return false
		}
		return evalComparison(OpGte, v, e.Low) && evalComparison(OpLte, v, e.Hi)

	case InSet:
		v, ok := meta[e.Attr]
		if !ok {
			return false
		}
		found := false
		for _, want := range e.Values {
			if valuesEqual(v, want) {
				found = true
				break
			}
		}
		if e.Negate {
			return !found
		}
		return found

	case NullCheck:
		_, ok := meta[e.Attr]
		if e.IsNull {
			return !ok
		}
		return ok

	case StringMatch:
		v, ok := meta[e.Attr]
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		switch e.Op {
		case OpContains:
			return strings.Contains(s, e.Val)
		case OpStartsWith:
			return strings.HasPrefix(s, e.Val)
		case OpEndsWith:
			return strings.HasSuffix(s, e.Val)
		default:
			return false
		}

	case And:
		return Evaluate(e.Left, meta) && Evaluate(e.Right, meta)

	case Or:
		return Evaluate(e.Left, meta) || Evaluate(e.Right, meta)

	case Not:
		return !Evaluate(e.Expr, meta)

	default:
		return false
	}
}

func evalComparison(op CompareOp, actual metadata.Value, literal Literal) bool {
	af, aIsNum := asFloat(actual)
	lf, lIsNum := asFloat(literal)
	if aIsNum && lIsNum {
		switch op {
		case OpEq:
			return af == lf
		case OpNeq:
			return af != lf
		case OpLt:
			return af < lf
		case OpLte:
			return af <= lf
		case OpGt:
			return af > lf
		case OpGte:
			return af >= lf
		}
		return false
	}

	as, aIsStr := actual.(string)
	ls, lIsStr := literal.(string)
	if aIsStr && lIsStr {
		switch op {
		case OpEq:
			return as == ls
		case OpNeq:
			return as != ls
		case OpLt:
			return as < ls
		case OpLte:
			return as <= ls
		case OpGt:
			return as > ls
		case OpGte:
			return as >= ls
		}
		return false
	}

	ab, aIsBool := actual.(bool)
	lb, lIsBool := literal.(bool)
	if aIsBool && lIsBool {
		switch op {
		case OpEq:
			return ab == lb
		case OpNeq:
			return ab != lb
		}
		return false
	}

	return false
}

func valuesEqual(actual metadata.Value, want Literal) bool {
	if af, ok := asFloat(actual); ok {
		if lf, ok := asFloat(want); ok {
			return af == lf
		}
	}
	if as, ok := actual.(string); ok {
		if ls, ok := want.(string); ok {
			return as == ls
		}
	}
	if ab, ok := actual.(bool); ok {
		if lb, ok := want.(bool); ok {
			return ab == lb
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
