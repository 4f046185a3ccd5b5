// Package document implements the in-memory event record model: a tree of
// typed nodes with dotted-path lookup, array indexing and numeric
// coercion. Lookups are read-only and side-effect free.
package document

import (
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind int

const (
	KindNull Kind = iota
	KindAbsent
	KindBool
	KindInt64
	KindUInt64
	KindFloat
	KindString
	KindSequence
	KindMap
)

// Value is one node in a Document tree. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
}

// Absent is the distinguished value returned for any path that does not
// resolve, distinct from an explicit Null.
var Absent = Value{kind: KindAbsent}

// Null is the empty value explicitly present in a document.
var Null = Value{kind: KindNull}

func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int64(i int64) Value     { return Value{kind: KindInt64, i: i} }
func UInt64(u uint64) Value   { return Value{kind: KindUInt64, u: u} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Sequence(v []Value) Value { return Value{kind: KindSequence, seq: v} }
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// FromAny builds a Value from a loosely-typed Go value, the shape the
// external EVTX decoder or a JSON-decoded record naturally produces.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int64(int64(t))
	case int32:
		return Int64(int64(t))
	case int64:
		return Int64(t)
	case uint:
		return UInt64(uint64(t))
	case uint64:
		return UInt64(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case []interface{}:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			out = append(out, FromAny(e))
		}
		return Sequence(out)
	case []string:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			out = append(out, String(e))
		}
		return Sequence(out)
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = FromAny(e)
		}
		return Map(out)
	default:
		return String(stringify(v))
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }
func (v Value) IsNull() bool   { return v.kind == KindNull }

// String returns a loose string representation used for substring and
// regex operators. Booleans render as "true"/"false", numbers in decimal.
func (v Value) String() string {
	switch v.kind {
	case KindNull, KindAbsent:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindUInt64:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Int64 coerces the value to a signed 64-bit integer, reinterpreting
// numeric strings and integer-kinded values. Non-numeric input fails.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt64:
		return v.i, true
	case KindUInt64:
		return int64(v.u), true
	case KindFloat:
		return int64(v.f), true
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Float64 coerces the value to a float64, used by numeric comparisons.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt64:
		return float64(v.i), true
	case KindUInt64:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns the boolean content, if any.
func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// Sequence returns the element slice, if this value is a sequence.
func (v Value) Sequence() ([]Value, bool) {
	if v.kind == KindSequence {
		return v.seq, true
	}
	return nil, false
}

// MapValue returns the backing map, if this value is a map.
func (v Value) MapValue() (map[string]Value, bool) {
	if v.kind == KindMap {
		return v.m, true
	}
	return nil, false
}

// Any converts a Value back to a loosely-typed Go value, the inverse of
// FromAny, used at the output boundary (JSON encoding of projected
// fields) where callers want plain map/slice/scalar types rather than
// the Value tree.
func (v Value) Any() interface{} {
	switch v.kind {
	case KindNull, KindAbsent:
		return nil
	case KindBool:
		return v.b
	case KindInt64:
		return v.i
	case KindUInt64:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]interface{}, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.Any()
		}
		return out
	default:
		return nil
	}
}

func stringify(v interface{}) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return ""
}
