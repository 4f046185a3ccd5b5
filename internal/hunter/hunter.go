// Package hunter implements the streaming hunter (spec §4.F, §5): a
// bounded worker pool that pulls records from file iterators, evaluates
// the compiled rule set against each, and emits Detections into a
// shared channel drained by a single collator.
//
// Grounded on internal/pipeline/adjacency_redis_pipeline.go's
// producer/worker/collator channel topology (readLoop -> workerLoop(s)
// -> writeLoop), adapted here from a single Redis stream to N
// independently-owned file iterators processed by the worker pool.
package hunter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"chainsaw/internal/document"
	"chainsaw/internal/logger"
	"chainsaw/internal/rule"
	"chainsaw/internal/tau"
)

// RecordSource is a pull iterator over one file's records (spec §6
// "Record source"): Next returns io.EOF once exhausted.
type RecordSource interface {
	Next(ctx context.Context) (*document.Record, error)
	Close() error
}

// Options configures one Hunter run.
type Options struct {
	Workers    int
	From, To   *time.Time
	SkipErrors bool
	Metrics    *Metrics
}

// Hunter evaluates an immutable, shared compiled rule set against
// streamed records (spec §4.F "Shared-resource policy").
type Hunter struct {
	rules     []rule.CompiledRule
	buckets   map[bucketKey][]int
	universal []int
	opts      Options
}

// New builds a Hunter, partitioning rules into precondition buckets
// (spec §4.F step 1).
func New(rules []rule.CompiledRule, opts Options) *Hunter {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	h := &Hunter{rules: rules, opts: opts, buckets: map[bucketKey][]int{}}
	for i, cr := range rules {
		if key, ok := extractBucket(cr.Expr); ok {
			h.buckets[key] = append(h.buckets[key], i)
		} else {
			h.universal = append(h.universal, i)
		}
	}
	return h
}

// Run processes every source through the bounded worker pool, calling
// sink once per Detection. Cancellation is cooperative: workers check
// ctx between records and at channel send (spec §5 "Suspension
// points"/"Cancellation").
func (h *Hunter) Run(ctx context.Context, sources []RecordSource, sink func(Detection)) error {
	fileCh := make(chan RecordSource, len(sources))
	for _, s := range sources {
		fileCh <- s
	}
	close(fileCh)

	detections := make(chan Detection, h.opts.Workers*4)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i := 0; i < h.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range fileCh {
				err := h.processFile(ctx, src, detections)
				closeErr := src.Close()
				if err == nil {
					err = closeErr
				}
				if err != nil {
					logger.Errorf("hunter: file processing error: %v", err)
					errOnce.Do(func() { firstErr = err })
				}
				if ctx.Err() != nil {
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(detections)
	}()

	for d := range detections {
		sink(d)
	}

	if firstErr != nil && !h.opts.SkipErrors {
		return firstErr
	}
	return ctx.Err()
}

// processFile drains one file's records strictly sequentially, to
// preserve per-file ordering (spec §5 "Ordering guarantees").
func (h *Hunter) processFile(ctx context.Context, src RecordSource, out chan<- Detection) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			h.countError()
			if h.opts.SkipErrors {
				logger.Warnf("hunter: skipping unreadable record: %v", err)
				continue
			}
			return fmt.Errorf("hunter: record read error: %w", err)
		}

		if err := h.evaluateRecord(ctx, rec, out); err != nil {
			h.countError()
			if h.opts.SkipErrors {
				logger.Warnf("hunter: skipping record: %v", err)
				continue
			}
			return err
		}
	}
}

// evaluateRecord implements spec §4.F steps 2-4: time-window rejection,
// bucket lookup, evaluation, Detection emission.
func (h *Hunter) evaluateRecord(ctx context.Context, rec *document.Record, out chan<- Detection) error {
	ts, hasTS := recordTimestamp(rec)
	if !hasTS {
		return fmt.Errorf("hunter: record missing timestamp")
	}
	if h.opts.From != nil && ts.Before(*h.opts.From) {
		return nil
	}
	if h.opts.To != nil && ts.After(*h.opts.To) {
		return nil
	}

	start := time.Now()
	for _, idx := range h.candidateIndices(rec) {
		cr := h.rules[idx]
		if !tau.Eval(cr.Expr, rec) {
			continue
		}
		d := Detection{
			Timestamp:       ts,
			RuleID:          cr.Rule.ID,
			RuleName:        cr.Rule.Name,
			RuleGroup:       cr.Rule.Group,
			Level:           cr.Rule.Level,
			DocumentRef:     rec,
			FieldProjection: projectFields(cr.Rule, rec),
		}
		select {
		case out <- d:
		case <-ctx.Done():
			return nil
		}
		if h.opts.Metrics != nil {
			h.opts.Metrics.detectionsEmitted.Inc()
		}
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.recordsProcessed.Inc()
		h.opts.Metrics.evalDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// candidateIndices returns every universal-bucket rule plus the
// record's own literal Provider+EventID bucket, if any (spec §4.F step
// 2).
func (h *Hunter) candidateIndices(rec *document.Record) []int {
	indices := make([]int, len(h.universal), len(h.universal)+4)
	copy(indices, h.universal)

	key := bucketKey{
		provider: strings.ToLower(rec.Get("Event.System.Provider").String()),
		eventID:  rec.Get("Event.System.EventID").String(),
	}
	if bucket, ok := h.buckets[key]; ok {
		indices = append(indices, bucket...)
	}
	return indices
}

func (h *Hunter) countError() {
	if h.opts.Metrics != nil {
		h.opts.Metrics.recordErrors.Inc()
	}
}
