package mapping

import (
	"fmt"

	"chainsaw/internal/compiler"
	"chainsaw/internal/rule"
	"chainsaw/internal/tau"
)

// Entry is one resolved field binding (spec §3's generic MappingEntry
// abstraction: source_path/target_path/display_name/visible).
type Entry struct {
	SourcePath  string
	TargetPath  string
	DisplayName string
	Visible     bool
}

// Selector is a compiled precondition selector: either an id-only match,
// or a subset of category/product/service that must all match a rule's
// logsource (empty fields are wildcards).
type Selector struct {
	Category string
	Product  string
	Service  string
	ID       string
}

// Precondition is one compiled `extensions.preconditions[]` entry.
type Precondition struct {
	Selector Selector
	Expr     tau.Expr
}

// Table is the fully built, immutable mapping/precondition set a rule
// set is compiled against (spec §4.D). Built once by Build, then shared
// by reference across every rule compile and every hunt worker (spec
// §4.F "Shared-resource policy").
type Table struct {
	Entries       []Entry
	Preconditions []Precondition
	Exclusions    map[string]bool
}

// Build merges one or more parsed mapping files, in file order, into a
// single Table (spec.md §4.E supplemented to accept multiple mapping
// files — see SPEC_FULL.md). Field entries and preconditions are
// flattened in file-then-group order; later files' entries are scanned
// after earlier ones', matching spec §4.D's "first exact match wins"
// resolution order.
func Build(files []File) (*Table, error) {
	t := &Table{Exclusions: map[string]bool{}}

	for _, f := range files {
		for _, name := range f.Exclusions {
			t.Exclusions[name] = true
		}
		for _, g := range f.Groups {
			for _, fd := range g.Fields {
				visible := true
				if fd.Visible != nil {
					visible = *fd.Visible
				}
				t.Entries = append(t.Entries, Entry{
					SourcePath:  fd.To,
					TargetPath:  fd.From,
					DisplayName: fd.Name,
					Visible:     visible,
				})
			}
		}
	}

	resolve := compiler.FieldResolver(t.Resolve)
	for _, f := range files {
		for _, pd := range f.Extensions.Preconditions {
			expr, err := compiler.CompileFilterNode(pd.Filter, resolve)
			if err != nil {
				return nil, fmt.Errorf("mapping: precondition %+v: %w", pd.For, err)
			}
			t.Preconditions = append(t.Preconditions, Precondition{
				Selector: Selector{
					Category: pd.For.Category,
					Product:  pd.For.Product,
					Service:  pd.For.Service,
					ID:       pd.For.ID,
				},
				Expr: expr,
			})
		}
	}

	return t, nil
}

// Resolve implements compiler.FieldResolver: an ordered scan of mapping
// entries (spec §4.D step 1), falling back to the Sigma convention
// "Event.EventData.<field_name>" when no entry binds the name.
func (t *Table) Resolve(name string) compiler.FieldTarget {
	for _, e := range t.Entries {
		if e.SourcePath == name || e.DisplayName == name {
			return compiler.FieldTarget{Path: e.TargetPath}
		}
	}
	return compiler.FieldTarget{Path: "Event.EventData." + name}
}

// FindPrecondition returns the first precondition (in load order) whose
// selector subsumes the given logsource or rule id (spec §3 invariant
// I4: first full match wins, never OR'd — Open Question ii).
func (t *Table) FindPrecondition(ls rule.Logsource, ruleID string) (tau.Expr, bool) {
	for _, p := range t.Preconditions {
		if p.Selector.ID != "" {
			if p.Selector.ID == ruleID {
				return p.Expr, true
			}
			continue
		}
		if p.Selector.Category == "" && p.Selector.Product == "" && p.Selector.Service == "" {
			continue
		}
		if p.Selector.Category != "" && p.Selector.Category != ls.Category {
			continue
		}
		if p.Selector.Product != "" && p.Selector.Product != ls.Product {
			continue
		}
		if p.Selector.Service != "" && p.Selector.Service != ls.Service {
			continue
		}
		return p.Expr, true
	}
	return tau.Expr{}, false
}

// ApplyPrecondition AND-s the matching precondition into a compiled
// rule expression (spec §4.D). A rule with no logsource at all (the
// Chainsaw case: it carries its own field bindings and never
// participates in precondition resolution) passes through unchanged.
// A rule with a logsource but no matching precondition fails soft: a
// diagnostic is returned and the rule is disabled, unless
// allowDefaultAdmission lets it through unfiltered.
func (t *Table) ApplyPrecondition(r rule.Rule, expr tau.Expr, allowDefaultAdmission bool) (tau.Expr, *rule.Diagnostic) {
	if r.Logsource == (rule.Logsource{}) {
		return expr, nil
	}
	pre, ok := t.FindPrecondition(r.Logsource, r.ID)
	if !ok {
		if allowDefaultAdmission {
			return expr, nil
		}
		return tau.Expr{}, &rule.Diagnostic{
			RuleID:  r.ID,
			File:    r.SourceFile,
			Message: "no precondition for logsource",
		}
	}
	return tau.And(pre, expr), nil
}

// Aliases projects the mapping's field entries into output field
// aliases (spec §3 "field aliases (user-visible output mappings)"),
// the Sigma-side counterpart of compiler.CompileChainsaw's
// buildAliases: a Sigma rule carries no `fields:` list of its own, so
// its display aliases are the mapping table's entries themselves, each
// keyed by its rule-facing name and resolved to its concrete document
// path.
func (t *Table) Aliases() []rule.FieldAlias {
	aliases := make([]rule.FieldAlias, 0, len(t.Entries))
	for _, e := range t.Entries {
		name := e.DisplayName
		if e.SourcePath != "" {
			name = e.SourcePath
		}
		if name == "" {
			continue
		}
		aliases = append(aliases, rule.FieldAlias{
			Name:    name,
			Path:    e.TargetPath,
			Visible: e.Visible,
		})
	}
	return aliases
}

// Excluded reports whether a rule title/name is on the mapping's
// exclusion list (spec §4.E, §8 scenario 6).
func (t *Table) Excluded(title string) bool {
	return t.Exclusions[title]
}
