package document

import "strings"

// Record is one event: a root Value plus a lazily-computed cache of
// Chainsaw container.format:kv derived subfields. The cache is scoped to
// this record only and is never shared across records (spec §9 design
// note: "derived view computed lazily on first access per document;
// cache only within the current record's scope").
type Record struct {
	Root Value

	kvCache map[kvCacheKey]Value
}

type kvCacheKey struct {
	path      string
	delimiter string
	separator string
}

// NewRecord wraps a root Value as a Record.
func NewRecord(root Value) *Record {
	return &Record{Root: root}
}

// NewRecordFromAny builds a Record from a loosely-typed Go value, the
// shape the external EVTX decoder or a JSON source naturally produces.
func NewRecordFromAny(v interface{}) *Record {
	return NewRecord(FromAny(v))
}

// Get resolves a dotted path (see ParsePath) against the record root.
func (r *Record) Get(path string) Value {
	return Get(r.Root, path)
}

// CoerceInt implements int(path) against the record root.
func (r *Record) CoerceInt(path string) (int64, bool) {
	return CoerceInt(r.Root, path)
}

// IterWildcard resolves path and always returns every matching element.
func (r *Record) IterWildcard(path string) []Value {
	return IterWildcard(r.Root, path)
}

// KV parses the string at path as a Chainsaw container.format:kv field
// and returns a synthetic map of its key-value pairs, memoized per
// (path, delimiter, separator) for the lifetime of this Record.
func (r *Record) KV(path, delimiter, separator string) Value {
	key := kvCacheKey{path: path, delimiter: delimiter, separator: separator}
	if r.kvCache == nil {
		r.kvCache = make(map[kvCacheKey]Value)
	}
	if cached, ok := r.kvCache[key]; ok {
		return cached
	}

	raw := r.Get(path).String()
	out := map[string]Value{}
	if raw != "" {
		if delimiter == "" {
			delimiter = ","
		}
		if separator == "" {
			separator = "="
		}
		for _, entry := range strings.Split(raw, delimiter) {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			k, v, found := strings.Cut(entry, separator)
			if !found {
				continue
			}
			out[strings.TrimSpace(k)] = String(strings.TrimSpace(v))
		}
	}

	val := Map(out)
	r.kvCache[key] = val
	return val
}
