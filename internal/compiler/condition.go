package compiler

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"chainsaw/internal/tau"
)

// compileCondition parses and folds a Sigma/Chainsaw boolean condition
// string against a set of already-compiled named selections, per the
// grammar in spec §4.C step 3:
//
//	or_expr    := and_expr ('or' and_expr)*
//	and_expr   := not_expr ('and' not_expr)*
//	not_expr   := 'not'? atom
//	atom       := selection_ref | count_expr | '(' or_expr ')'
//	count_expr := ('1'|'all') 'of' (selection_ref | wildcard_pattern)
func compileCondition(condition string, selections map[string]tau.Expr) (tau.Expr, error) {
	p := &conditionParser{tokens: tokenize(condition), selections: selections}
	expr, err := p.parseOr()
	if err != nil {
		return tau.Expr{}, err
	}
	if p.pos != len(p.tokens) {
		return tau.Expr{}, fmt.Errorf("unexpected trailing token %q in condition", p.tokens[p.pos])
	}
	return expr, nil
}

func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "(", " ( ")
	s = strings.ReplaceAll(s, ")", " ) ")
	return strings.Fields(s)
}

type conditionParser struct {
	tokens     []string
	pos        int
	selections map[string]tau.Expr
}

func (p *conditionParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *conditionParser) peekAt(offset int) string {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return ""
	}
	return p.tokens[idx]
}

func (p *conditionParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *conditionParser) parseOr() (tau.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return tau.Expr{}, err
	}
	parts := []tau.Expr{left}
	for strings.EqualFold(p.peek(), "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return tau.Expr{}, err
		}
		parts = append(parts, right)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return tau.Or(parts...), nil
}

func (p *conditionParser) parseAnd() (tau.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return tau.Expr{}, err
	}
	parts := []tau.Expr{left}
	for strings.EqualFold(p.peek(), "and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return tau.Expr{}, err
		}
		parts = append(parts, right)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return tau.And(parts...), nil
}

func (p *conditionParser) parseNot() (tau.Expr, error) {
	if strings.EqualFold(p.peek(), "not") {
		p.next()
		inner, err := p.parseAtom()
		if err != nil {
			return tau.Expr{}, err
		}
		return tau.Not(inner), nil
	}
	return p.parseAtom()
}

func (p *conditionParser) parseAtom() (tau.Expr, error) {
	tok := p.peek()
	if tok == "" {
		return tau.Expr{}, fmt.Errorf("unexpected end of condition")
	}

	if tok == "(" {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return tau.Expr{}, err
		}
		if p.peek() != ")" {
			return tau.Expr{}, fmt.Errorf("expected ')' in condition")
		}
		p.next()
		return inner, nil
	}

	if (strings.EqualFold(tok, "1") || strings.EqualFold(tok, "all")) && strings.EqualFold(p.peekAt(1), "of") {
		return p.parseCountExpr()
	}

	p.next()
	expr, ok := p.selections[tok]
	if !ok {
		return tau.Expr{}, fmt.Errorf("condition references undefined selection %q", tok)
	}
	return expr, nil
}

func (p *conditionParser) parseCountExpr() (tau.Expr, error) {
	quant := strings.ToLower(p.next()) // "1" or "all"
	p.next()                          // "of"
	pattern := p.next()
	if pattern == "" {
		return tau.Expr{}, fmt.Errorf("expected selection reference after 'of'")
	}

	var matched []tau.Expr
	if strings.Contains(pattern, "*") {
		names := make([]string, 0, len(p.selections))
		for name := range p.selections {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if ok, _ := filepath.Match(pattern, name); ok {
				matched = append(matched, p.selections[name])
			}
		}
		if len(matched) == 0 {
			return tau.Expr{}, fmt.Errorf("no selections match wildcard pattern %q", pattern)
		}
	} else {
		expr, ok := p.selections[pattern]
		if !ok {
			return tau.Expr{}, fmt.Errorf("condition references undefined selection %q", pattern)
		}
		matched = []tau.Expr{expr}
	}

	if quant == "1" {
		return tau.Or(matched...), nil
	}
	return tau.And(matched...), nil
}
