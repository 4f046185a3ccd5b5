// Package rule declares the common rule model shared by the Sigma and
// Chainsaw rule variants (spec §3): both compile down to the same
// CompiledRule/tau.Expr representation and the same evaluator.
package rule

import "chainsaw/internal/tau"

// Kind distinguishes the two rule source formats. They share one
// evaluator; Kind only matters to the loader and to diagnostics.
type Kind string

const (
	KindSigma    Kind = "sigma"
	KindChainsaw Kind = "chainsaw"
)

// Level is a rule's severity, ordered low to high.
type Level string

const (
	LevelInformational Level = "informational"
	LevelLow           Level = "low"
	LevelMedium        Level = "medium"
	LevelHigh          Level = "high"
	LevelCritical      Level = "critical"
)

// Rank gives Level a total order for min-level filtering.
func (l Level) Rank() int {
	switch l {
	case LevelInformational:
		return 0
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	default:
		return -1
	}
}

// Status is a rule's maturity/lifecycle marker.
type Status string

const (
	StatusStable       Status = "stable"
	StatusTest         Status = "test"
	StatusExperimental Status = "experimental"
	StatusDeprecated   Status = "deprecated"
	StatusUnsupported  Status = "unsupported"
)

// Logsource is Sigma's discriminator subset used by the precondition
// resolver: category/product/service. Id-only preconditions match on
// Rule.ID instead.
type Logsource struct {
	Category string
	Product  string
	Service  string
}

// FieldAlias is a user-visible output field mapping recorded on the
// compiled rule (spec §3: "field aliases (user-visible output
// mappings)").
type FieldAlias struct {
	Name    string
	Path    string
	Visible bool
}

// Rule holds the attributes common to both rule variants.
type Rule struct {
	ID        string
	Name      string
	Group     string
	Level     Level
	Status    Status
	Kind      Kind
	Authors   []string
	Logsource Logsource
	Aliases   []FieldAlias
	SourceFile string
}

// CompiledRule is a Rule paired with its compiled IR, ready for
// evaluation. Immutable once built (spec §3 lifecycle).
type CompiledRule struct {
	Rule Rule
	Expr tau.Expr
}

// Diagnostic records a non-fatal loader/compiler issue, attached to the
// rule (or file) that produced it. The offending rule is excluded from
// the compiled set, but loading continues (spec §7).
type Diagnostic struct {
	File    string
	RuleID  string
	Message string
}

func (d Diagnostic) String() string {
	if d.RuleID != "" {
		return d.File + " [" + d.RuleID + "]: " + d.Message
	}
	return d.File + ": " + d.Message
}
