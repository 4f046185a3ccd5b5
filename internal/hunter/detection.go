package hunter

import (
	"time"

	"chainsaw/internal/document"
	"chainsaw/internal/rule"
)

// Detection is a single (rule, record) match (spec §3). DocumentRef
// borrows the record that produced it and must not be retained past the
// hunter's per-record scope (the worker reuses/discards the record
// immediately after the sink callback returns).
type Detection struct {
	Timestamp       time.Time
	RuleID          string
	RuleName        string
	RuleGroup       string
	Level           rule.Level
	DocumentRef     *document.Record
	FieldProjection map[string]document.Value
}

// projectFields evaluates a rule's output field aliases (spec §3 "field
// aliases (user-visible output mappings)") against a matched record.
func projectFields(r rule.Rule, rec *document.Record) map[string]document.Value {
	if len(r.Aliases) == 0 {
		return nil
	}
	out := make(map[string]document.Value, len(r.Aliases))
	for _, alias := range r.Aliases {
		if !alias.Visible {
			continue
		}
		out[alias.Name] = rec.Get(alias.Path)
	}
	return out
}

// recordTimestamp resolves a Detection's timestamp: Event.System.TimeCreated
// by default, or the "@timestamp" override field when present (spec §4.F
// step 3).
func recordTimestamp(rec *document.Record) (time.Time, bool) {
	if v := rec.Get("@timestamp"); !v.IsAbsent() && !v.IsNull() {
		if ts, ok := parseTimestamp(v.String()); ok {
			return ts, true
		}
	}
	v := rec.Get("Event.System.TimeCreated")
	if v.IsAbsent() || v.IsNull() {
		return time.Time{}, false
	}
	return parseTimestamp(v.String())
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999Z07:00"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
