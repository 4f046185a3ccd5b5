package document

import (
	"strconv"
	"strings"
)

// Segment is one piece of a dotted path: a map key, a wildcard ("*"), or
// a sequence index.
type Segment struct {
	Key      string
	IsIndex  bool
	Index    int
	Wildcard bool
}

// Path is a parsed dotted path, optionally wrapped in int(...).
type Path struct {
	Segments []Segment
	AsInt    bool
}

// ParsePath parses the grammar described in spec §4.A:
//
//	segment ( '.' segment | '[' nat ']' )*
//
// with an optional int(...) wrapper forcing numeric coercion at lookup.
func ParsePath(raw string) Path {
	raw = strings.TrimSpace(raw)
	asInt := false
	if strings.HasPrefix(raw, "int(") && strings.HasSuffix(raw, ")") {
		asInt = true
		raw = raw[len("int(") : len(raw)-1]
	}

	var segs []Segment
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		seg := cur.String()
		cur.Reset()
		if seg == "*" {
			segs = append(segs, Segment{Wildcard: true})
			return
		}
		segs = append(segs, Segment{Key: seg})
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '.':
			flush()
			i++
		case '[':
			flush()
			j := strings.IndexByte(raw[i:], ']')
			if j < 0 {
				// Malformed index; treat the rest as a literal key.
				cur.WriteString(raw[i:])
				i = len(raw)
				continue
			}
			idxStr := raw[i+1 : i+j]
			if n, err := strconv.Atoi(strings.TrimSpace(idxStr)); err == nil {
				segs = append(segs, Segment{IsIndex: true, Index: n})
			}
			i += j + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()

	return Path{Segments: segs, AsInt: asInt}
}

// Get resolves path against the document root. A path that traverses a
// sequence without an explicit index returns the sequence of matching
// element values (multi-value result), matching spec §4.A.
func Get(root Value, raw string) Value {
	p := ParsePath(raw)
	return getMulti(root, p.Segments)
}

// GetPath resolves an already-parsed Path.
func GetPath(root Value, p Path) Value {
	return getMulti(root, p.Segments)
}

func getMulti(root Value, segs []Segment) Value {
	cur := []Value{root}
	for _, seg := range segs {
		var next []Value
		for _, v := range cur {
			next = append(next, step(v, seg)...)
		}
		if len(next) == 0 {
			return Absent
		}
		cur = next
	}
	if len(cur) == 0 {
		return Absent
	}
	if len(cur) == 1 {
		return cur[0]
	}
	return Sequence(cur)
}

func step(v Value, seg Segment) []Value {
	switch {
	case seg.Wildcard:
		if m, ok := v.MapValue(); ok {
			out := make([]Value, 0, len(m))
			for _, child := range m {
				out = append(out, child)
			}
			return out
		}
		if seq, ok := v.Sequence(); ok {
			return seq
		}
		return nil
	case seg.IsIndex:
		if seq, ok := v.Sequence(); ok {
			if seg.Index >= 0 && seg.Index < len(seq) {
				return []Value{seq[seg.Index]}
			}
			return nil
		}
		return nil
	default:
		if m, ok := v.MapValue(); ok {
			if child, found := m[seg.Key]; found {
				return []Value{child}
			}
			return nil
		}
		// A numeric segment against a sequence indexes it, like [n]
		// (spec §3). Any other bare key against a sequence broadcasts the
		// lookup across elements: non-indexed descent into array-of-maps
		// is a common EventData shape.
		if seq, ok := v.Sequence(); ok {
			if n, err := strconv.Atoi(seg.Key); err == nil {
				if n >= 0 && n < len(seq) {
					return []Value{seq[n]}
				}
				return nil
			}
			var out []Value
			for _, e := range seq {
				out = append(out, step(e, seg)...)
			}
			return out
		}
		return nil
	}
}

// CoerceInt implements int(path): resolves path then reinterprets the
// result as a signed 64-bit integer, failing cleanly on non-numeric
// input (spec invariant I2).
func CoerceInt(root Value, raw string) (int64, bool) {
	v := Get(root, raw)
	return v.Int64()
}

// IterWildcard resolves a path and always returns a slice of matches,
// even for a single scalar result (used by predicates that need to
// decide between "some" and "all" element semantics).
func IterWildcard(root Value, raw string) []Value {
	p := ParsePath(raw)
	cur := []Value{root}
	for _, seg := range p.Segments {
		var next []Value
		for _, v := range cur {
			next = append(next, step(v, seg)...)
		}
		cur = next
	}
	return cur
}
