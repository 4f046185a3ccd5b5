package compiler

import (
	"fmt"

	"chainsaw/internal/sigmarule"
	"chainsaw/internal/tau"
)

// CompileSigma compiles a parsed Sigma rule's detection stanza into a
// tau.Expr, per spec §4.C: each selection block becomes a tau.Expr
// (fields AND'd, multi-value lists OR'd/AND'd per the `all` modifier),
// then the condition string folds the named selections together.
//
// Sigma's `timeframe` key names an aggregation window this engine does
// not implement (spec Non-goals); a rule that sets one is rejected
// rather than silently matching a single event.
func CompileSigma(r sigmarule.Rule, resolve FieldResolver) (tau.Expr, error) {
	if len(r.Detection.Selections) == 0 {
		return tau.Expr{}, fmt.Errorf("sigma rule %q: detection has no selections", r.Title)
	}
	if r.Detection.Timeframe > 0 {
		return tau.Expr{}, fmt.Errorf("sigma rule %q: timeframe aggregation is not supported", r.Title)
	}
	if r.Detection.Condition == "" {
		return tau.Expr{}, fmt.Errorf("sigma rule %q: detection has no condition", r.Title)
	}

	selections := make(map[string]tau.Expr, len(r.Detection.Selections))
	for name, node := range r.Detection.Selections {
		expr, err := CompileFilterNode(node, resolve)
		if err != nil {
			return tau.Expr{}, fmt.Errorf("sigma rule %q: selection %q: %w", r.Title, name, err)
		}
		selections[name] = expr
	}

	expr, err := compileCondition(r.Detection.Condition, selections)
	if err != nil {
		return tau.Expr{}, fmt.Errorf("sigma rule %q: condition: %w", r.Title, err)
	}
	return expr, nil
}
