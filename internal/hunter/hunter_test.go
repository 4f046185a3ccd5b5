package hunter

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"chainsaw/internal/document"
	"chainsaw/internal/rule"
	"chainsaw/internal/tau"
)

type fakeSource struct {
	records []*document.Record
	errs    []error
	pos     int
	closed  bool
}

func (f *fakeSource) Next(ctx context.Context) (*document.Record, error) {
	if f.pos >= len(f.records) {
		return nil, io.EOF
	}
	rec := f.records[f.pos]
	var err error
	if f.pos < len(f.errs) {
		err = f.errs[f.pos]
	}
	f.pos++
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func recOf(eventID int, provider string, extra map[string]interface{}) *document.Record {
	eventData := map[string]interface{}{}
	for k, v := range extra {
		eventData[k] = v
	}
	return document.NewRecordFromAny(map[string]interface{}{
		"Event": map[string]interface{}{
			"System": map[string]interface{}{
				"Provider":    provider,
				"EventID":     eventID,
				"TimeCreated": "2026-01-01T00:00:00Z",
			},
			"EventData": eventData,
		},
	})
}

func ruleWithBucket(id, provider string, eventID int) rule.CompiledRule {
	expr := tau.And(
		tau.Leaf(tau.Predicate{Path: "Event.System.Provider", Op: tau.OpEq, Operand: tau.Operand{Scalar: provider}}),
		tau.Leaf(tau.Predicate{Path: "Event.System.EventID", Op: tau.OpEq, Operand: tau.Operand{Scalar: strconv.Itoa(eventID), HasFloat: true, Number: float64(eventID)}}),
	)
	return rule.CompiledRule{Rule: rule.Rule{ID: id, Name: id}, Expr: expr}
}

func universalRule(id string, expr tau.Expr) rule.CompiledRule {
	return rule.CompiledRule{Rule: rule.Rule{ID: id, Name: id}, Expr: expr}
}

func TestHunterRoutesRecordsToBucketAndUniversalRules(t *testing.T) {
	bucketed := ruleWithBucket("bucketed", "Microsoft-Windows-Sysmon", 1)
	universal := universalRule("universal", tau.Leaf(tau.Predicate{
		Path: "Event.EventData.CommandLine", Op: tau.OpContains, Operand: tau.Operand{Scalar: "whoami"},
	}))

	h := New([]rule.CompiledRule{bucketed, universal}, Options{Workers: 2})

	src := &fakeSource{records: []*document.Record{
		recOf(1, "Microsoft-Windows-Sysmon", map[string]interface{}{"CommandLine": "whoami /all"}),
		recOf(2, "Microsoft-Windows-Sysmon", map[string]interface{}{"CommandLine": "dir"}),
	}}

	var got []Detection
	err := h.Run(context.Background(), []RecordSource{src}, func(d Detection) { got = append(got, d) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !src.closed {
		t.Fatalf("expected source to be closed")
	}

	ids := map[string]int{}
	for _, d := range got {
		ids[d.RuleID]++
	}
	if ids["bucketed"] != 1 {
		t.Fatalf("expected bucketed rule to match exactly 1 record, got %d", ids["bucketed"])
	}
	if ids["universal"] != 1 {
		t.Fatalf("expected universal rule to match exactly 1 record, got %d", ids["universal"])
	}
}

func TestHunterRejectsOutsideTimeWindow(t *testing.T) {
	r := universalRule("r", tau.Leaf(tau.Predicate{Path: "Event.EventData.X", Op: tau.OpEq, Operand: tau.Operand{Scalar: "y"}}))
	h := New([]rule.CompiledRule{r}, Options{Workers: 1})

	src := &fakeSource{records: []*document.Record{
		recOf(1, "P", map[string]interface{}{"X": "y"}),
	}}

	var got []Detection
	err := h.Run(context.Background(), []RecordSource{src}, func(d Detection) { got = append(got, d) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("sanity: expected match with no window set, got %d", len(got))
	}

	cutoff := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	h2 := New([]rule.CompiledRule{r}, Options{Workers: 1, From: &cutoff})
	src2 := &fakeSource{records: []*document.Record{
		recOf(1, "P", map[string]interface{}{"X": "y"}),
	}}
	var got2 []Detection
	if err := h2.Run(context.Background(), []RecordSource{src2}, func(d Detection) { got2 = append(got2, d) }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got2) != 0 {
		t.Fatalf("expected time window to reject the record, got %d matches", len(got2))
	}
}

func TestHunterSkipErrorsContinuesPastBadRecord(t *testing.T) {
	r := universalRule("r", tau.Leaf(tau.Predicate{Path: "Event.EventData.X", Op: tau.OpEq, Operand: tau.Operand{Scalar: "y"}}))
	h := New([]rule.CompiledRule{r}, Options{Workers: 1, SkipErrors: true})

	src := &fakeSource{
		records: []*document.Record{nil, recOf(1, "P", map[string]interface{}{"X": "y"})},
		errs:    []error{errors.New("corrupt record")},
	}

	var got []Detection
	if err := h.Run(context.Background(), []RecordSource{src}, func(d Detection) { got = append(got, d) }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected skip_errors to continue past the bad record, got %d matches", len(got))
	}
}

func TestHunterAbortsOnErrorWithoutSkipErrors(t *testing.T) {
	r := universalRule("r", tau.Leaf(tau.Predicate{Path: "Event.EventData.X", Op: tau.OpEq, Operand: tau.Operand{Scalar: "y"}}))
	h := New([]rule.CompiledRule{r}, Options{Workers: 1, SkipErrors: false})

	src := &fakeSource{
		records: []*document.Record{nil},
		errs:    []error{errors.New("corrupt record")},
	}

	if err := h.Run(context.Background(), []RecordSource{src}, func(d Detection) {}); err == nil {
		t.Fatalf("expected error to propagate without skip_errors")
	}
}
