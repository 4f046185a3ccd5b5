// Package loader walks rule directories, classifies each file as Sigma
// or Chainsaw, compiles it via internal/compiler, resolves mapping
// bindings and preconditions, and returns the final compiled rule set
// plus accumulated diagnostics (spec §4.E, §7).
//
// Grounded on internal/rules/sigma_engine.go's NewSigmaEngine: a
// filepath.WalkDir collecting *.yml/*.yaml candidates, a single-pass
// per-file try/skip loop, and a plain counter struct (here,
// []rule.Diagnostic) returned alongside the compiled set instead of a
// hard failure.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chainsaw/internal/chainsawrule"
	"chainsaw/internal/compiler"
	"chainsaw/internal/mapping"
	"chainsaw/internal/rule"
	"chainsaw/internal/sigmarule"
)

// Options controls one Load call (spec §4.E plus the multi-directory,
// multi-mapping-file supplement documented in SPEC_FULL.md).
type Options struct {
	RuleDirs              []string
	MappingFiles          []string
	Levels                []string // empty = no filter
	Statuses              []string // empty = no filter
	Kinds                 []string // empty = no filter ("sigma", "chainsaw")
	Exclusions            []string // additional exact title/name exclusions, merged with the mapping file's own
	AllowDefaultAdmission bool
}

// Result is the loader's output: the compiled, precondition-applied
// rule set plus every diagnostic collected along the way.
type Result struct {
	Rules       []rule.CompiledRule
	Diagnostics []rule.Diagnostic
	Mapping     *mapping.Table
}

// Load performs the full rule-loading pipeline described above.
func Load(opts Options) (Result, error) {
	if len(opts.MappingFiles) == 0 {
		return Result{}, fmt.Errorf("loader: at least one mapping file must be supplied")
	}

	var files []mapping.File
	for _, path := range opts.MappingFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("loader: read mapping file %s: %w", path, err)
		}
		f, err := mapping.Parse(raw)
		if err != nil {
			return Result{}, fmt.Errorf("loader: invalid mapping file %s: %w", path, err)
		}
		files = append(files, f)
	}
	table, err := mapping.Build(files)
	if err != nil {
		return Result{}, fmt.Errorf("loader: invalid mapping file schema: %w", err)
	}
	for _, name := range opts.Exclusions {
		table.Exclusions[name] = true
	}

	ruleFiles, err := collectRuleFiles(opts.RuleDirs)
	if err != nil {
		return Result{}, err
	}

	var (
		diagnostics []rule.Diagnostic
		compiled    []rule.CompiledRule
		seenIDs     = map[string]bool{}
	)

	levelFilter := toSet(opts.Levels)
	statusFilter := toSet(opts.Statuses)
	kindFilter := toSet(opts.Kinds)

	for _, path := range ruleFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			diagnostics = append(diagnostics, rule.Diagnostic{File: path, Message: "read error: " + err.Error()})
			continue
		}

		var (
			cr   rule.CompiledRule
			ok   bool
			diag *rule.Diagnostic
		)
		switch {
		case chainsawrule.LooksLikeChainsaw(raw):
			cr, diag = compileChainsawFile(path, raw)
			ok = diag == nil
		case sigmarule.LooksLikeSigma(raw):
			cr, diag = compileSigmaFile(path, raw, table, opts.AllowDefaultAdmission)
			ok = diag == nil
		default:
			diag = &rule.Diagnostic{File: path, Message: "unrecognized rule schema (neither sigma nor chainsaw)"}
		}
		if !ok {
			diagnostics = append(diagnostics, *diag)
			continue
		}

		if table.Excluded(cr.Rule.Name) {
			continue
		}
		if cr.Rule.ID != "" {
			if seenIDs[cr.Rule.ID] {
				diagnostics = append(diagnostics, rule.Diagnostic{File: path, RuleID: cr.Rule.ID, Message: "duplicate rule id, first occurrence wins"})
				continue
			}
			seenIDs[cr.Rule.ID] = true
		}
		if len(levelFilter) > 0 && !levelFilter[string(cr.Rule.Level)] {
			continue
		}
		if len(statusFilter) > 0 && !statusFilter[string(cr.Rule.Status)] {
			continue
		}
		if len(kindFilter) > 0 && !kindFilter[string(cr.Rule.Kind)] {
			continue
		}

		compiled = append(compiled, cr)
	}

	if len(compiled) == 0 {
		return Result{Rules: compiled, Diagnostics: diagnostics, Mapping: table},
			fmt.Errorf("loader: no rules loaded")
	}

	return Result{Rules: compiled, Diagnostics: diagnostics, Mapping: table}, nil
}

func compileSigmaFile(path string, raw []byte, table *mapping.Table, allowDefaultAdmission bool) (rule.CompiledRule, *rule.Diagnostic) {
	sr, err := sigmarule.Parse(raw)
	if err != nil {
		return rule.CompiledRule{}, &rule.Diagnostic{File: path, Message: "yaml parse error: " + err.Error()}
	}

	resolve := compiler.FieldResolver(table.Resolve)
	expr, err := compiler.CompileSigma(sr, resolve)
	if err != nil {
		return rule.CompiledRule{}, &rule.Diagnostic{File: path, RuleID: sr.ID, Message: err.Error()}
	}

	r := rule.Rule{
		ID:      sr.ID,
		Name:    sr.Title,
		Level:   rule.Level(strings.ToLower(sr.Level)),
		Status:  rule.Status(strings.ToLower(sr.Status)),
		Kind:    rule.KindSigma,
		Authors: splitAuthors(sr.Author),
		Logsource: rule.Logsource{
			Category: sr.Logsource.Category,
			Product:  sr.Logsource.Product,
			Service:  sr.Logsource.Service,
		},
		Aliases:    table.Aliases(),
		SourceFile: path,
	}

	finalExpr, diag := table.ApplyPrecondition(r, expr, allowDefaultAdmission)
	if diag != nil {
		return rule.CompiledRule{}, diag
	}

	return rule.CompiledRule{Rule: r, Expr: finalExpr}, nil
}

func compileChainsawFile(path string, raw []byte) (rule.CompiledRule, *rule.Diagnostic) {
	cr, err := chainsawrule.Parse(raw)
	if err != nil {
		return rule.CompiledRule{}, &rule.Diagnostic{File: path, Message: "yaml parse error: " + err.Error()}
	}

	expr, aliases, err := compiler.CompileChainsaw(cr)
	if err != nil {
		return rule.CompiledRule{}, &rule.Diagnostic{File: path, RuleID: cr.Title, Message: err.Error()}
	}

	r := rule.Rule{
		Name:       cr.Title,
		Group:      cr.Group,
		Level:      rule.Level(strings.ToLower(cr.Level)),
		Status:     rule.Status(strings.ToLower(cr.Status)),
		Kind:       rule.KindChainsaw,
		Authors:    cr.Authors,
		Aliases:    aliases,
		SourceFile: path,
	}

	return rule.CompiledRule{Rule: r, Expr: expr}, nil
}

func collectRuleFiles(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			if isYAMLFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("loader: walk rule directory %s: %w", dir, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func splitAuthors(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	out := make(map[string]bool, len(vals))
	for _, v := range vals {
		out[strings.ToLower(v)] = true
	}
	return out
}
