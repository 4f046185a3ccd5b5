package compiler

import (
	"fmt"
	"strings"

	"chainsaw/internal/chainsawrule"
	"chainsaw/internal/rule"
	"chainsaw/internal/tau"
)

// CompileChainsaw compiles a parsed Chainsaw rule's filter stanza into a
// tau.Expr plus its output field alias list, per spec §6. Chainsaw
// shares the Sigma selection/condition grammar (internal/compiler's
// node.go/condition.go), differing only in how field names resolve to
// document targets: a Chainsaw `fields:` entry can name a
// container.format:kv derived subfield instead of a plain path.
func CompileChainsaw(r chainsawrule.Rule) (tau.Expr, []rule.FieldAlias, error) {
	if len(r.Filter.Named) == 0 {
		return tau.Expr{}, nil, fmt.Errorf("chainsaw rule %q: filter has no named expressions", r.Title)
	}
	if r.Filter.Condition == "" {
		return tau.Expr{}, nil, fmt.Errorf("chainsaw rule %q: filter has no condition", r.Title)
	}

	resolve := chainsawFieldResolver(r.Fields)

	named := make(map[string]tau.Expr, len(r.Filter.Named))
	for name, node := range r.Filter.Named {
		expr, err := CompileFilterNode(node, resolve)
		if err != nil {
			return tau.Expr{}, nil, fmt.Errorf("chainsaw rule %q: filter %q: %w", r.Title, name, err)
		}
		named[name] = expr
	}

	expr, err := compileCondition(r.Filter.Condition, named)
	if err != nil {
		return tau.Expr{}, nil, fmt.Errorf("chainsaw rule %q: condition: %w", r.Title, err)
	}

	return expr, buildAliases(r.Fields), nil
}

// chainsawFieldResolver builds a FieldResolver from a rule's `fields:`
// list: a field with a Container parses its source path as a packed kv
// string and resolves to that container's SubKey; otherwise it resolves
// to its own From path, falling back to the Sigma-style default
// "Event.EventData.<name>" document location when From is unset.
func chainsawFieldResolver(fields []chainsawrule.Field) FieldResolver {
	byName := make(map[string]chainsawrule.Field, len(fields))
	for _, f := range fields {
		key := f.Name
		if key == "" {
			key = f.To
		}
		byName[key] = f
	}

	return func(name string) FieldTarget {
		f, ok := byName[name]
		if !ok {
			return FieldTarget{Path: "Event.EventData." + name}
		}
		if f.Container != nil {
			return FieldTarget{KV: &tau.KVRef{
				ContainerPath: f.Container.Field,
				Delimiter:     f.Container.Delimiter,
				Separator:     f.Container.Separator,
				SubKey:        name,
			}}
		}
		if f.From != "" {
			return FieldTarget{Path: f.From}
		}
		return FieldTarget{Path: "Event.EventData." + name}
	}
}

// buildAliases maps a rule's `fields:` list to the output projection
// described in spec §3 (rule.FieldAlias): a field is visible in the
// detection's field projection unless explicitly marked otherwise.
func buildAliases(fields []chainsawrule.Field) []rule.FieldAlias {
	aliases := make([]rule.FieldAlias, 0, len(fields))
	for _, f := range fields {
		name := f.Name
		if f.To != "" {
			name = f.To
		}
		path := f.From
		if path == "" {
			if f.Container != nil {
				path = f.Container.Field + "." + f.Name
			} else {
				path = "Event.EventData." + f.Name
			}
		}
		visible := true
		if f.Visible != nil {
			visible = *f.Visible
		}
		aliases = append(aliases, rule.FieldAlias{
			Name:    strings.TrimSpace(name),
			Path:    path,
			Visible: visible,
		})
	}
	return aliases
}
