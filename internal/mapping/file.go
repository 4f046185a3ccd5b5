// Package mapping implements the mapping/precondition resolver (spec
// §4.D): the user-supplied binding from rule field names to concrete
// document paths, plus the per-logsource precondition filters that get
// AND-ed into a compiled rule at load time.
package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is one parsed mapping file (spec §6 "Mapping file format"),
// mirroring the teacher's nested-struct + yaml.v3 tagging idiom
// (config/config.go).
type File struct {
	Name       string     `yaml:"name"`
	Kind       string     `yaml:"kind"`
	RulesKind  string     `yaml:"rules"`
	Exclusions []string   `yaml:"exclusions"`
	Extensions Extensions `yaml:"extensions"`
	Groups     []GroupDef `yaml:"groups"`
}

// Extensions holds the mapping file's `extensions:` stanza, currently
// only the precondition list.
type Extensions struct {
	Preconditions []PreconditionDef `yaml:"preconditions"`
}

// PreconditionDef is one `extensions.preconditions[]` entry: a logsource
// (or rule id) selector plus a filter expression.
type PreconditionDef struct {
	For    SelectorDef `yaml:"for"`
	Filter yaml.Node   `yaml:"filter"`
}

// SelectorDef names the logsource keys (or a bare rule id) a
// precondition applies to. An empty field is "don't care" for that key;
// a non-empty ID makes the selector an id-only match (spec §3
// "LogsourceSelector ... or a rule id").
type SelectorDef struct {
	Category string `yaml:"category"`
	Product  string `yaml:"product"`
	Service  string `yaml:"service"`
	ID       string `yaml:"id"`
}

// GroupDef is one `groups[]` entry: the output record shape (timestamp
// field, optional group-level filter) plus its field bindings.
type GroupDef struct {
	Name      string     `yaml:"name"`
	Timestamp string     `yaml:"timestamp"`
	Filter    yaml.Node  `yaml:"filter"`
	Fields    []FieldDef `yaml:"fields"`
}

// FieldDef is one field binding: From is the concrete document path,
// To/Name is the rule-facing and display name, Visible defaults true.
type FieldDef struct {
	Name    string `yaml:"name"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Visible *bool  `yaml:"visible"`
}

// Parse decodes raw mapping-file YAML into a File.
func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("mapping: parse: %w", err)
	}
	return f, nil
}
