package compiler

import (
	"testing"

	"chainsaw/internal/chainsawrule"
	"chainsaw/internal/document"
	"chainsaw/internal/tau"
)

func recordFromAny(v map[string]interface{}) *document.Record {
	return document.NewRecordFromAny(v)
}

func TestCompileChainsawPlainFieldCondition(t *testing.T) {
	raw := []byte(`
title: Logon failure
kind: evtx
fields:
  - name: EventID
    to: Event ID
    from: Event.System.EventID
filter:
  condition: selection
  selection:
    EventID: 4625
`)
	r, err := chainsawrule.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expr, aliases, err := CompileChainsaw(r)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(aliases) != 1 || aliases[0].Name != "Event ID" || aliases[0].Path != "Event.System.EventID" {
		t.Fatalf("unexpected aliases: %+v", aliases)
	}

	match := recordFromAny(map[string]interface{}{
		"Event": map[string]interface{}{
			"System": map[string]interface{}{"EventID": 4625},
		},
	})
	if !tau.Eval(expr, match) {
		t.Fatalf("expected match on rule's own from: path")
	}

	noMatch := recordFromAny(map[string]interface{}{
		"Event": map[string]interface{}{
			"System": map[string]interface{}{"EventID": 4624},
		},
	})
	if tau.Eval(expr, noMatch) {
		t.Fatalf("expected non-match")
	}
}

func TestCompileChainsawContainerKVField(t *testing.T) {
	raw := []byte(`
title: Packed command line
kind: evtx
fields:
  - name: User
    from: Event.EventData.CommandLine
    container:
      field: Event.EventData.CommandLine
      format: kv
      delimiter: ","
      separator: "="
filter:
  condition: selection
  selection:
    User: admin
`)
	r, err := chainsawrule.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expr, _, err := CompileChainsaw(r)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	rec := recordFromAny(map[string]interface{}{
		"Event": map[string]interface{}{
			"EventData": map[string]interface{}{
				"CommandLine": "User=admin,host=web01",
			},
		},
	})
	if !tau.Eval(expr, rec) {
		t.Fatalf("expected container kv field match")
	}
}

func TestCompileChainsawRejectsMissingCondition(t *testing.T) {
	raw := []byte(`
title: No condition
kind: evtx
filter:
  selection:
    EventID: 1
`)
	r, err := chainsawrule.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, _, err := CompileChainsaw(r); err == nil {
		t.Fatalf("expected error for missing condition")
	}
}
