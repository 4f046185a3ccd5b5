package hunter

import (
	"strings"

	"chainsaw/internal/tau"
)

// bucketKey identifies a precondition bucket: the literal
// Provider+EventID pair a rule's compiled filter reduces to, when it
// does (spec §4.F step 1).
type bucketKey struct {
	provider string
	eventID  string
}

// extractBucket inspects the top-level conjuncts of a compiled rule's
// expression (not descending into Or/Not, since only a conjunct is
// guaranteed true on every match) for literal equality predicates on a
// Provider-ish and an EventID-ish path. When both are found, the rule
// can be routed to its own namespaced bucket instead of evaluated
// against every record; otherwise it goes in the universal bucket.
//
// Grounded on internal/rules/sigma_engine.go's inferSysmonEventIDs: the
// same kind of coarse, best-effort literal extraction used there to
// avoid evaluating every rule against every event.
func extractBucket(expr tau.Expr) (bucketKey, bool) {
	var key bucketKey
	var haveProvider, haveEventID bool

	var walk func(e tau.Expr)
	walk = func(e tau.Expr) {
		if len(e.And) > 0 {
			for _, child := range e.And {
				walk(child)
			}
			return
		}
		p := e.Pred
		if p == nil || p.Op != tau.OpEq || p.KV != nil || p.Operand.Scalar == "" {
			return
		}
		switch {
		case !haveProvider && strings.HasSuffix(p.Path, "Provider"):
			key.provider = strings.ToLower(p.Operand.Scalar)
			haveProvider = true
		case !haveEventID && strings.HasSuffix(p.Path, "EventID"):
			key.eventID = p.Operand.Scalar
			haveEventID = true
		}
	}
	walk(expr)

	if haveProvider && haveEventID {
		return key, true
	}
	return bucketKey{}, false
}
