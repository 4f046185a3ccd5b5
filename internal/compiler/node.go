package compiler

import (
	"fmt"

	"chainsaw/internal/tau"
	"gopkg.in/yaml.v3"
)

// CompileMappingNode compiles a single selection/filter mapping (the
// Sigma SelectionBlock shape: field|modifiers -> value_or_list,
// implicitly AND'd across keys) into a tau.Expr.
func CompileMappingNode(node yaml.Node, resolve FieldResolver) (tau.Expr, error) {
	if node.Kind != yaml.MappingNode {
		return tau.Expr{}, fmt.Errorf("expected a mapping, got kind %d", node.Kind)
	}
	if len(node.Content) == 0 {
		return tau.Expr{}, fmt.Errorf("empty selection")
	}

	var parts []tau.Expr
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		expr, err := compileFieldKey(keyNode.Value, *valNode, resolve)
		if err != nil {
			return tau.Expr{}, err
		}
		parts = append(parts, expr)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return tau.And(parts...), nil
}

// CompileFilterNode compiles a mapping-file precondition filter node
// (spec §6): a single mapping (AND across keys), or a top-level
// sequence of mappings interpreted as OR of its entries.
func CompileFilterNode(node yaml.Node, resolve FieldResolver) (tau.Expr, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return CompileMappingNode(node, resolve)
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return tau.Expr{}, fmt.Errorf("empty filter list")
		}
		var parts []tau.Expr
		for _, child := range node.Content {
			expr, err := CompileMappingNode(*child, resolve)
			if err != nil {
				return tau.Expr{}, err
			}
			parts = append(parts, expr)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return tau.Or(parts...), nil
	default:
		return tau.Expr{}, fmt.Errorf("unsupported filter node kind %d", node.Kind)
	}
}
