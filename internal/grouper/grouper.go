// Package grouper implements the grouper/collator (spec §4.G): it
// groups Detections by rule group, orders each group by timestamp
// (stable on ties), and forwards each group to the output Sink.
//
// Grounded on the teacher's small, single-purpose writer-interface
// files (internal/pipeline/alert_writer.go et al.): a one-method-plus-Close
// contract the pipeline depends on, not a concrete format.
package grouper

import (
	"sort"

	"chainsaw/internal/hunter"
)

// Sink receives one rule-group's Detections, already ordered by
// timestamp. No cross-group ordering is guaranteed (spec §4.G).
type Sink interface {
	WriteGroup(group string, detections []hunter.Detection) error
	Close() error
}

// Grouper buffers Detections by rule.group until Flush is called.
type Grouper struct {
	sink   Sink
	groups map[string][]hunter.Detection
	order  []string
}

// New builds a Grouper writing finished groups to sink.
func New(sink Sink) *Grouper {
	return &Grouper{sink: sink, groups: map[string][]hunter.Detection{}}
}

// Add buffers one Detection under its rule group.
func (g *Grouper) Add(d hunter.Detection) {
	if _, ok := g.groups[d.RuleGroup]; !ok {
		g.order = append(g.order, d.RuleGroup)
	}
	g.groups[d.RuleGroup] = append(g.groups[d.RuleGroup], d)
}

// Flush sorts each group by timestamp (stable on ties, preserving Add
// order) and forwards it to the sink, in first-seen group order.
func (g *Grouper) Flush() error {
	for _, group := range g.order {
		detections := g.groups[group]
		sort.SliceStable(detections, func(i, j int) bool {
			return detections[i].Timestamp.Before(detections[j].Timestamp)
		})
		if err := g.sink.WriteGroup(group, detections); err != nil {
			return err
		}
	}
	g.groups = map[string][]hunter.Detection{}
	g.order = nil
	return nil
}

// Close releases the underlying sink.
func (g *Grouper) Close() error {
	return g.sink.Close()
}
