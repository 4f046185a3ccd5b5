package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"chainsaw/internal/tau"
	"gopkg.in/yaml.v3"
)

// compileFieldKey compiles one "field|modifiers: value_or_list" entry
// of a Sigma selection block (or a Chainsaw/precondition filter
// mapping, which shares the same grammar) into a tau.Expr, per spec
// §4.C step 2.
func compileFieldKey(rawKey string, node yaml.Node, resolve FieldResolver) (tau.Expr, error) {
	key := ParseFieldKey(rawKey)

	op, agg, cased, explicitOp, err := compileOperator(key)
	if err != nil {
		return tau.Expr{}, fmt.Errorf("field %q: %w", rawKey, err)
	}

	wide := wideBytes(key)
	if !explicitOp && (key.has("base64") || key.has("base64offset")) {
		op = tau.OpContains
		explicitOp = true
	}

	values, err := decodeValues(node)
	if err != nil {
		return tau.Expr{}, fmt.Errorf("field %q: %w", rawKey, err)
	}
	if len(values) == 0 {
		return tau.Expr{}, fmt.Errorf("field %q: empty value list", rawKey)
	}

	target := resolve(key.Name)
	if key.AsInt && target.KV == nil {
		target.Path = "int(" + target.Path + ")"
	}

	var valueExprs []tau.Expr
	for _, v := range values {
		expr, err := compileOneValue(key, target, v, op, explicitOp, agg, cased, wide)
		if err != nil {
			return tau.Expr{}, fmt.Errorf("field %q: %w", rawKey, err)
		}
		valueExprs = append(valueExprs, expr)
	}

	if len(valueExprs) == 1 {
		return valueExprs[0], nil
	}
	if agg == tau.AggAll {
		return tau.And(valueExprs...), nil
	}
	return tau.Or(valueExprs...), nil
}

func compileOneValue(key FieldKey, target FieldTarget, v rawScalar, op tau.Op, explicitOp bool, agg tau.Aggregation, cased, wide bool) (tau.Expr, error) {
	if v.isNull {
		return tau.Leaf(tau.Predicate{Path: target.Path, KV: target.KV, Op: tau.OpIsNull, Aggregation: agg}), nil
	}

	if key.has("cidr") {
		ipnet, err := parseCidr(v.text)
		if err != nil {
			return tau.Expr{}, err
		}
		return tau.Leaf(tau.Predicate{Path: target.Path, KV: target.KV, Op: tau.OpCidr, Operand: tau.Operand{Cidr: ipnet}, Aggregation: agg}), nil
	}

	if op == tau.OpRegex {
		pattern := v.text
		if !cased {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return tau.Expr{}, fmt.Errorf("invalid regex %q: %w", v.text, err)
		}
		return tau.Leaf(tau.Predicate{Path: target.Path, KV: target.KV, Op: tau.OpRegex, Operand: tau.Operand{Regex: re}, Cased: cased, Aggregation: agg}), nil
	}

	if op == tau.OpGt || op == tau.OpGe || op == tau.OpLt || op == tau.OpLe {
		operand := tau.Operand{Scalar: v.text}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64); err == nil {
			operand.HasFloat, operand.Number = true, f
		}
		return tau.Leaf(tau.Predicate{Path: target.Path, KV: target.KV, Op: op, Operand: operand, Aggregation: agg}), nil
	}

	variants := []string{v.text}
	if key.has("base64") {
		variants = base64Variants(v.text, wide)
	} else if key.has("base64offset") {
		variants = base64OffsetVariants(v.text, wide)
	}
	if key.has("windash") {
		var expanded []string
		for _, vv := range variants {
			expanded = append(expanded, windashVariants(vv)...)
		}
		variants = expanded
	}

	var variantExprs []tau.Expr
	for _, variant := range variants {
		finalOp := op
		if !explicitOp && op == tau.OpEq && tau.HasGlobMeta(variant) {
			finalOp = tau.OpGlob
		}

		var operand tau.Operand
		if finalOp == tau.OpGlob {
			re, err := tau.CompileGlob(variant, cased)
			if err != nil {
				return tau.Expr{}, fmt.Errorf("invalid glob %q: %w", variant, err)
			}
			operand = tau.Operand{Regex: re}
		} else {
			operand = tau.Operand{Scalar: variant}
			if key.AsInt {
				if f, err := strconv.ParseFloat(strings.TrimSpace(variant), 64); err == nil {
					operand.HasFloat, operand.Number = true, f
				}
			}
		}

		variantExprs = append(variantExprs, tau.Leaf(tau.Predicate{
			Path: target.Path, KV: target.KV, Op: finalOp, Operand: operand, Cased: cased, Aggregation: agg,
		}))
	}

	if len(variantExprs) == 1 {
		return variantExprs[0], nil
	}
	return tau.Or(variantExprs...), nil
}

// decodeValues normalizes a selection value node (scalar, null, or
// sequence of scalars) into a flat list of rawScalar.
func decodeValues(node yaml.Node) ([]rawScalar, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "~" || (node.Value == "" && node.Tag == "!!null") {
			return []rawScalar{{isNull: true}}, nil
		}
		return []rawScalar{{text: node.Value}}, nil
	case yaml.SequenceNode:
		var out []rawScalar
		for _, child := range node.Content {
			if child.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("unsupported nested value kind %d", child.Kind)
			}
			if child.Tag == "!!null" {
				out = append(out, rawScalar{isNull: true})
				continue
			}
			out = append(out, rawScalar{text: child.Value})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported selection value kind %d", node.Kind)
	}
}
