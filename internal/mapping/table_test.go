package mapping

import (
	"testing"

	"chainsaw/internal/document"
	"chainsaw/internal/rule"
	"chainsaw/internal/tau"
)

func mustBuild(t *testing.T, raw string) *Table {
	t.Helper()
	f, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tbl, err := Build([]File{f})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tbl
}

func TestResolveOrderedFirstMatchWins(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: sigma
groups:
  - name: process_creation
    fields:
      - name: Image
        from: Event.EventData.NewProcessName
      - name: Image
        from: Event.EventData.Image
`)
	target := tbl.Resolve("Image")
	if target.Path != "Event.EventData.NewProcessName" {
		t.Fatalf("expected first-wins entry, got %s", target.Path)
	}
}

func TestResolveMatchesByToBinding(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: sigma
groups:
  - name: process_creation
    fields:
      - to: Image
        from: Event.EventData.NewProcessName
`)
	target := tbl.Resolve("Image")
	if target.Path != "Event.EventData.NewProcessName" {
		t.Fatalf("expected to-bound entry to resolve, got %s", target.Path)
	}
}

func TestResolveFallsBackToDefaultEventData(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: sigma
groups: []
`)
	target := tbl.Resolve("CommandLine")
	if target.Path != "Event.EventData.CommandLine" {
		t.Fatalf("expected default fallback, got %s", target.Path)
	}
}

func TestPreconditionFirstWinsAndANDsIntoRule(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: sigma
extensions:
  preconditions:
    - for: { category: process_creation }
      filter:
        Provider: Microsoft-Windows-Sysmon
        int(EventID): 1
    - for: { category: process_creation }
      filter:
        Provider: Microsoft-Windows-Security-Auditing
`)
	r := rule.Rule{
		ID:        "r1",
		Logsource: rule.Logsource{Category: "process_creation"},
	}
	inner := tau.Leaf(tau.Predicate{Path: "Event.EventData.Image", Op: tau.OpContains, Operand: tau.Operand{Scalar: "cmd"}})
	expr, diag := tbl.ApplyPrecondition(r, inner, false)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}

	// The precondition filter resolves Provider/EventID via the default
	// Event.EventData.* fallback (no explicit mapping entries here).
	match := document.NewRecordFromAny(map[string]interface{}{
		"Event": map[string]interface{}{
			"EventData": map[string]interface{}{
				"Provider": "Microsoft-Windows-Sysmon",
				"EventID":  1,
				"Image":    "cmd.exe",
			},
		},
	})
	if !tau.Eval(expr, match) {
		t.Fatalf("expected precondition+rule match")
	}
}

func TestApplyPreconditionNoLogsourcePassesThrough(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: chainsaw
`)
	r := rule.Rule{ID: "r2"}
	inner := tau.Leaf(tau.Predicate{Path: "Event.EventData.X", Op: tau.OpEq, Operand: tau.Operand{Scalar: "y"}})
	expr, diag := tbl.ApplyPrecondition(r, inner, false)
	if diag != nil {
		t.Fatalf("unexpected diagnostic for logsource-less rule: %v", diag)
	}
	if expr.Pred != inner.Pred {
		t.Fatalf("expected pass-through expression")
	}
}

func TestApplyPreconditionNoMatchFailsSoft(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: sigma
extensions:
  preconditions:
    - for: { category: network_connection }
      filter:
        Provider: X
`)
	r := rule.Rule{ID: "r3", Logsource: rule.Logsource{Category: "process_creation"}}
	inner := tau.Leaf(tau.Predicate{Path: "Event.EventData.X", Op: tau.OpEq, Operand: tau.Operand{Scalar: "y"}})

	_, diag := tbl.ApplyPrecondition(r, inner, false)
	if diag == nil {
		t.Fatalf("expected diagnostic for unmatched logsource")
	}

	passthrough, diag2 := tbl.ApplyPrecondition(r, inner, true)
	if diag2 != nil {
		t.Fatalf("expected no diagnostic with allowDefaultAdmission: %v", diag2)
	}
	if passthrough.Pred != inner.Pred {
		t.Fatalf("expected pass-through expression under default admission")
	}
}

func TestExcludedByExactTitleMatch(t *testing.T) {
	tbl := mustBuild(t, `
name: test
kind: evtx
rules: sigma
exclusions:
  - Non Interactive PowerShell
`)
	if !tbl.Excluded("Non Interactive PowerShell") {
		t.Fatalf("expected exclusion match")
	}
	if tbl.Excluded("Other Rule") {
		t.Fatalf("expected no exclusion match")
	}
}
