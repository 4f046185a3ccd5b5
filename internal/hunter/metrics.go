package hunter

import "github.com/prometheus/client_golang/prometheus"

// Metrics wires the hunter's per-run counters/histogram into
// prometheus/client_golang (a teacher-declared dependency that the
// teacher's own code never imported — see DESIGN.md).
type Metrics struct {
	recordsProcessed prometheus.Counter
	detectionsEmitted prometheus.Counter
	recordErrors      prometheus.Counter
	evalDuration      prometheus.Histogram
}

// NewMetrics registers the hunter's collectors on reg. Passing nil
// registers on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		recordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsaw_hunter_records_processed_total",
			Help: "Total number of records evaluated by the hunter.",
		}),
		detectionsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsaw_hunter_detections_total",
			Help: "Total number of detections emitted by the hunter.",
		}),
		recordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsaw_hunter_record_errors_total",
			Help: "Total number of per-record errors encountered by the hunter.",
		}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainsaw_hunter_record_eval_seconds",
			Help:    "Time spent evaluating the compiled rule set against one record.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.recordsProcessed, m.detectionsEmitted, m.recordErrors, m.evalDuration)
	return m
}
