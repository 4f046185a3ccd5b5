package grouper

import (
	"testing"
	"time"

	"chainsaw/internal/hunter"
)

type recordingSink struct {
	groups map[string][]hunter.Detection
	order  []string
	closed bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{groups: map[string][]hunter.Detection{}}
}

func (s *recordingSink) WriteGroup(group string, detections []hunter.Detection) error {
	s.order = append(s.order, group)
	s.groups[group] = detections
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func det(group string, ts time.Time, ruleID string) hunter.Detection {
	return hunter.Detection{RuleGroup: group, Timestamp: ts, RuleID: ruleID}
}

func TestGrouperSortsByTimestampWithinGroup(t *testing.T) {
	sink := newRecordingSink()
	g := New(sink)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.Add(det("lateral_movement", base.Add(2*time.Minute), "r2"))
	g.Add(det("lateral_movement", base, "r1"))
	g.Add(det("persistence", base.Add(time.Minute), "r3"))

	if err := g.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	lm := sink.groups["lateral_movement"]
	if len(lm) != 2 || lm[0].RuleID != "r1" || lm[1].RuleID != "r2" {
		t.Fatalf("expected ascending timestamp order within group, got %+v", lm)
	}
	if len(sink.groups["persistence"]) != 1 {
		t.Fatalf("expected persistence group with 1 detection")
	}
}

func TestGrouperStableOrderOnEqualTimestamps(t *testing.T) {
	sink := newRecordingSink()
	g := New(sink)

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.Add(det("g", ts, "first"))
	g.Add(det("g", ts, "second"))
	g.Add(det("g", ts, "third"))

	if err := g.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got := sink.groups["g"]
	if got[0].RuleID != "first" || got[1].RuleID != "second" || got[2].RuleID != "third" {
		t.Fatalf("expected input order preserved among equal timestamps, got %+v", got)
	}
}

func TestGrouperCloseDelegatesToSink(t *testing.T) {
	sink := newRecordingSink()
	g := New(sink)
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !sink.closed {
		t.Fatalf("expected underlying sink to be closed")
	}
}
