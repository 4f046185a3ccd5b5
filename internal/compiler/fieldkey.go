package compiler

import "strings"

// FieldKey is a parsed Sigma/Chainsaw selection key: a field name plus
// its ordered `|modifier` pragmas, with an optional int(...) wrapper.
type FieldKey struct {
	Name      string
	Modifiers []string
	AsInt     bool
}

// ParseFieldKey splits a raw selection key such as
// "CommandLine|contains|all" or "int(EventID)" into its parts.
func ParseFieldKey(raw string) FieldKey {
	raw = strings.TrimSpace(raw)
	asInt := false
	if strings.HasPrefix(raw, "int(") && strings.HasSuffix(raw, ")") {
		asInt = true
		raw = raw[len("int(") : len(raw)-1]
	}

	parts := strings.Split(raw, "|")
	name := strings.TrimSpace(parts[0])
	var mods []string
	for _, m := range parts[1:] {
		m = strings.TrimSpace(m)
		if m != "" {
			mods = append(mods, strings.ToLower(m))
		}
	}
	return FieldKey{Name: name, Modifiers: mods, AsInt: asInt}
}

func (k FieldKey) has(mod string) bool {
	for _, m := range k.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}
