// Package sigmarule declares the SigmaHQ YAML schema as a thin,
// declarative struct mirror, unmarshalled with gopkg.in/yaml.v3. Sigma
// YAML lexing proper is treated as an external collaborator (spec §1);
// this is just the struct the rule loader decodes files into, in the
// same spirit as the teacher's own yaml.v3-tagged rule schemas.
package sigmarule

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one parsed Sigma detection rule.
type Rule struct {
	Title          string    `yaml:"title"`
	ID             string    `yaml:"id"`
	Status         string    `yaml:"status"`
	Level          string    `yaml:"level"`
	Description    string    `yaml:"description"`
	Author         string    `yaml:"author"`
	Logsource      Logsource `yaml:"logsource"`
	Detection      Detection `yaml:"detection"`
	Tags           []string  `yaml:"tags"`
	FalsePositives []string  `yaml:"falsepositives"`
	References     []string  `yaml:"references"`

	// Fields is the output field alias list. SigmaHQ rules rarely carry
	// this (it's more of a Chainsaw convention) but some dialects do.
	Fields []string `yaml:"fields"`
}

// Logsource is Sigma's discriminator for a class of events.
type Logsource struct {
	Category string `yaml:"category"`
	Product  string `yaml:"product"`
	Service  string `yaml:"service"`
}

// Detection is the `detection:` stanza: a named set of selection
// blocks, a boolean condition string referencing them, and an optional
// timeframe (unsupported aggregation window, rejected at compile time).
type Detection struct {
	Condition  string
	Timeframe  time.Duration
	Selections map[string]yaml.Node
}

// UnmarshalYAML splits the reserved "condition"/"timeframe" keys from
// the arbitrary, rule-author-chosen selection names that make up the
// rest of the detection mapping.
func (d *Detection) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("sigmarule: detection must be a mapping, got kind %d", value.Kind)
	}

	d.Selections = make(map[string]yaml.Node)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		switch keyNode.Value {
		case "condition":
			// `condition` may be a single string or a list of strings
			// (implicitly OR'd); normalize to a single string here.
			switch valNode.Kind {
			case yaml.ScalarNode:
				d.Condition = valNode.Value
			case yaml.SequenceNode:
				var parts []string
				for _, c := range valNode.Content {
					parts = append(parts, "("+c.Value+")")
				}
				d.Condition = joinOr(parts)
			}
		case "timeframe":
			if dur, err := time.ParseDuration(normalizeTimeframe(valNode.Value)); err == nil {
				d.Timeframe = dur
			}
		default:
			d.Selections[keyNode.Value] = *valNode
		}
	}
	return nil
}

func joinOr(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " or "
		}
		out += p
	}
	return out
}

// normalizeTimeframe adapts Sigma's "15m"/"1h"/"30s" shorthand (already
// valid Go duration syntax) and "1d" (not valid Go syntax) to
// time.ParseDuration input.
func normalizeTimeframe(s string) string {
	if len(s) >= 2 && s[len(s)-1] == 'd' {
		if _, err := time.ParseDuration(s[:len(s)-1] + "h"); err == nil {
			return s[:len(s)-1] + "h" // best-effort; exact multi-day scaling is not needed since Timeframe rules are rejected at compile time anyway
		}
	}
	return s
}

// Parse decodes raw Sigma rule YAML into a Rule.
func Parse(raw []byte) (Rule, error) {
	var r Rule
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Rule{}, fmt.Errorf("sigmarule: parse: %w", err)
	}
	return r, nil
}

// LooksLikeSigma reports whether raw YAML carries a non-empty
// Sigma-specific `detection:` top-level mapping (`logsource:` is not
// required), used by the rule loader to classify files before choosing
// which AST package to parse with.
func LooksLikeSigma(raw []byte) bool {
	var probe struct {
		Detection map[string]interface{} `yaml:"detection"`
		Logsource map[string]interface{} `yaml:"logsource"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe.Detection) > 0
}
