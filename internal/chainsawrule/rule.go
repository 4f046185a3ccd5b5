// Package chainsawrule declares the native Chainsaw YAML rule schema
// (spec §6), a yaml.v3-tagged struct mirror analogous to
// internal/sigmarule for the Sigma dialect.
package chainsawrule

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Rule is one parsed Chainsaw rule.
type Rule struct {
	Title       string  `yaml:"title"`
	Group       string  `yaml:"group"`
	Description string  `yaml:"description"`
	Authors     []string `yaml:"authors"`
	Kind        string  `yaml:"kind"`
	Level       string  `yaml:"level"`
	Status      string  `yaml:"status"`
	Timestamp   string  `yaml:"timestamp"`
	Fields      []Field `yaml:"fields"`
	Filter      Filter  `yaml:"filter"`
}

// Field maps one output column, with an optional container parser for
// the `kv`-packed string-field case.
type Field struct {
	Name      string     `yaml:"name"`
	To        string     `yaml:"to"`
	From      string     `yaml:"from"`
	Visible   *bool      `yaml:"visible"`
	Container *Container `yaml:"container"`
}

// Container describes how to parse a packed string field into synthetic
// dotted-path subfields (spec §6: container.format: kv).
type Container struct {
	Field     string `yaml:"field"`
	Format    string `yaml:"format"`
	Delimiter string `yaml:"delimiter"`
	Separator string `yaml:"separator"`
}

// Filter is the `filter:` block: a condition string plus a named
// dictionary of sub-expressions it may reference, using the same
// expression grammar as Sigma conditions (spec §3 "same evaluator").
type Filter struct {
	Condition string
	Named     map[string]yaml.Node
}

// UnmarshalYAML splits the reserved "condition" key from the
// rule-author-chosen named sub-expression keys.
func (f *Filter) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("chainsawrule: filter must be a mapping, got kind %d", value.Kind)
	}
	f.Named = make(map[string]yaml.Node)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]
		if keyNode.Value == "condition" {
			f.Condition = valNode.Value
			continue
		}
		f.Named[keyNode.Value] = *valNode
	}
	return nil
}

// Parse decodes raw Chainsaw rule YAML into a Rule.
func Parse(raw []byte) (Rule, error) {
	var r Rule
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Rule{}, fmt.Errorf("chainsawrule: parse: %w", err)
	}
	return r, nil
}

// LooksLikeChainsaw reports whether raw YAML carries the Chainsaw
// `kind: evtx` + `filter:` signature used by the rule loader classifier.
func LooksLikeChainsaw(raw []byte) bool {
	var probe struct {
		Kind   string                 `yaml:"kind"`
		Filter map[string]interface{} `yaml:"filter"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Kind == "evtx" && len(probe.Filter) > 0
}
