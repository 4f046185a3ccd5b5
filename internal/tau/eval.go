package tau

import (
	"net"
	"strconv"
	"strings"

	"chainsaw/internal/document"
)

func evalPredicate(p Predicate, rec *document.Record) bool {
	matches := resolveTarget(p, rec)
	if len(matches) == 0 {
		// A missing path still participates in IsNull/Exists checks.
		switch p.Op {
		case OpIsNull:
			return true
		case OpExists:
			return false
		default:
			return false
		}
	}

	if p.Op == OpExists {
		return true
	}

	results := make([]bool, 0, len(matches))
	for _, v := range matches {
		results = append(results, evalOne(p, v))
	}

	if p.Aggregation == AggAll {
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

func resolveTarget(p Predicate, rec *document.Record) []document.Value {
	if p.KV != nil {
		m, ok := rec.KV(p.KV.ContainerPath, p.KV.Delimiter, p.KV.Separator).MapValue()
		if !ok {
			return nil
		}
		v, found := m[p.KV.SubKey]
		if !found {
			return nil
		}
		return []document.Value{v}
	}
	// A path ending on a non-empty sequence is a multi-value target: its
	// elements are the values the Some/All aggregation runs over.
	var out []document.Value
	for _, v := range document.IterWildcard(rec.Root, p.Path) {
		if seq, ok := v.Sequence(); ok && len(seq) > 0 {
			out = append(out, seq...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func evalOne(p Predicate, v document.Value) bool {
	switch p.Op {
	case OpIsNull:
		return v.IsNull() || v.IsAbsent()
	case OpEq:
		return compareEq(v, p.Operand, p.Cased)
	case OpNe:
		return !compareEq(v, p.Operand, p.Cased)
	case OpContains:
		return substringMatch(v, p.Operand, p.Cased, strings.Contains)
	case OpStartsWith:
		return substringMatch(v, p.Operand, p.Cased, strings.HasPrefix)
	case OpEndsWith:
		return substringMatch(v, p.Operand, p.Cased, strings.HasSuffix)
	case OpRegex:
		if p.Operand.Regex == nil {
			return false
		}
		return p.Operand.Regex.MatchString(v.String())
	case OpGlob:
		if p.Operand.Regex == nil {
			return false
		}
		return p.Operand.Regex.MatchString(normalizeCase(v.String(), p.Cased))
	case OpCidr:
		return cidrMatch(v, p.Operand)
	case OpGt, OpGe, OpLt, OpLe:
		return numericCompare(p.Op, v, p.Operand)
	case OpBetween:
		return betweenMatch(v, p.Operand)
	default:
		return false
	}
}

func normalizeCase(s string, cased bool) string {
	if cased {
		return s
	}
	return strings.ToLower(s)
}

func compareEq(v document.Value, op Operand, cased bool) bool {
	if len(op.List) > 0 {
		for _, item := range op.List {
			if compareEq(v, item, cased) {
				return true
			}
		}
		return false
	}

	if b, ok := v.Bool(); ok {
		return strings.EqualFold(strconv.FormatBool(b), op.Scalar)
	}

	if op.HasFloat {
		if f, ok := v.Float64(); ok {
			return f == op.Number
		}
	}

	return normalizeCase(v.String(), cased) == normalizeCase(op.Scalar, cased)
}

func substringMatch(v document.Value, op Operand, cased bool, fn func(s, substr string) bool) bool {
	if len(op.List) > 0 {
		for _, item := range op.List {
			if substringMatch(v, item, cased, fn) {
				return true
			}
		}
		return false
	}
	return fn(normalizeCase(v.String(), cased), normalizeCase(op.Scalar, cased))
}

func cidrMatch(v document.Value, op Operand) bool {
	if op.Cidr == nil {
		return false
	}
	ip := net.ParseIP(strings.TrimSpace(v.String()))
	if ip == nil {
		// Non-parsable target is a non-match, not an error (spec §4.B).
		return false
	}
	return op.Cidr.Contains(ip)
}

func numericCompare(op Op, v document.Value, operand Operand) bool {
	lhs, ok := v.Float64()
	if !ok {
		return false
	}
	var rhs float64
	if operand.HasFloat {
		rhs = operand.Number
	} else if f, err := strconv.ParseFloat(strings.TrimSpace(operand.Scalar), 64); err == nil {
		rhs = f
	} else {
		return false
	}
	switch op {
	case OpGt:
		return lhs > rhs
	case OpGe:
		return lhs >= rhs
	case OpLt:
		return lhs < rhs
	case OpLe:
		return lhs <= rhs
	default:
		return false
	}
}

func betweenMatch(v document.Value, op Operand) bool {
	if len(op.List) != 2 {
		return false
	}
	lhs, ok := v.Float64()
	if !ok {
		return false
	}
	lo, ok1 := numberOf(op.List[0])
	hi, ok2 := numberOf(op.List[1])
	if !ok1 || !ok2 {
		return false
	}
	return lhs >= lo && lhs <= hi
}

func numberOf(op Operand) (float64, bool) {
	if op.HasFloat {
		return op.Number, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(op.Scalar), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
