// Package tau implements the compiled matcher IR described in spec §4.B:
// a boolean expression tree of typed field predicates, evaluated with
// short-circuit semantics. Predicate evaluation never fails; malformed
// input is a non-match, never an error (compile-time errors are the
// loader's concern, surfaced upstream of this package).
package tau

import (
	"net"
	"regexp"

	"chainsaw/internal/document"
)

// Op is a predicate operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpContains
	OpStartsWith
	OpEndsWith
	OpRegex
	OpGlob
	OpCidr
	OpGt
	OpGe
	OpLt
	OpLe
	OpIsNull
	OpExists
	OpBetween
)

// Aggregation controls how a predicate with a multi-valued path target
// (a sequence element match) is aggregated: Some (OR over elements, the
// default) or All (AND over elements, selected by the Sigma `all`
// modifier on the field key).
type Aggregation int

const (
	AggSome Aggregation = iota
	AggAll
)

// Operand is the right-hand side of a predicate.
type Operand struct {
	Scalar string
	// Number holds Scalar's pre-parsed numeric value when HasFloat is
	// set, so Eq and Gt/Ge/Lt/Le comparisons skip re-parsing Scalar.
	Number   float64
	HasFloat bool
	Regex    *regexp.Regexp
	Cidr     *net.IPNet
	List     []Operand
}

// KVRef targets a Chainsaw container.format:kv derived subfield instead
// of a plain document path: the predicate resolves ContainerPath via
// the record's lazy kv cache, then looks up SubKey in the result.
type KVRef struct {
	ContainerPath string
	Delimiter     string
	Separator     string
	SubKey        string
}

// Predicate is a single leaf comparison: a document path (or a
// container-derived subfield, via KV) compared to an operand via op.
type Predicate struct {
	Path        string
	KV          *KVRef
	Op          Op
	Operand     Operand
	Cased       bool
	Aggregation Aggregation
}

// Expr is a boolean expression node. Exactly one of the fields is set.
type Expr struct {
	And  []Expr
	Or   []Expr
	Not  *Expr
	Pred *Predicate
}

// And builds a conjunction node.
func And(parts ...Expr) Expr { return Expr{And: parts} }

// Or builds a disjunction node.
func Or(parts ...Expr) Expr { return Expr{Or: parts} }

// Not builds a negation node.
func Not(e Expr) Expr { return Expr{Not: &e} }

// Leaf builds a predicate leaf node.
func Leaf(p Predicate) Expr { return Expr{Pred: &p} }

// Eval evaluates the expression tree against a record root, short
// circuiting And/Or as soon as the result is determined.
func Eval(e Expr, rec *document.Record) bool {
	switch {
	case e.Pred != nil:
		return evalPredicate(*e.Pred, rec)
	case e.Not != nil:
		return !Eval(*e.Not, rec)
	case e.And != nil:
		for _, child := range e.And {
			if !Eval(child, rec) {
				return false
			}
		}
		return true
	case e.Or != nil:
		for _, child := range e.Or {
			if Eval(child, rec) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
