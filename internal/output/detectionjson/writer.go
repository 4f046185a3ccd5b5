// Package detectionjson implements one concrete grouper.Sink: a
// mutex-guarded JSON-lines writer for Detection records (spec §6
// "Outputs (to the external sink)": table/CSV/JSON formatting is the
// sink's concern, not the core's).
//
// Grounded verbatim on internal/output/alertjson/writer.go's
// file-plus-encoder-plus-mutex shape.
package detectionjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chainsaw/internal/hunter"
	"chainsaw/internal/logger"
)

// record is the JSON-lines wire shape for one Detection.
type record struct {
	Timestamp time.Time              `json:"timestamp"`
	RuleID    string                  `json:"rule_id"`
	RuleName  string                  `json:"rule_name"`
	RuleGroup string                  `json:"rule_group"`
	Level     string                  `json:"level"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Writer outputs Detections as one JSON object per line.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewWriter creates a JSONL writer at path, truncating any existing file.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("detectionjson: create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("detectionjson: create output file: %w", err)
	}

	logger.Infof("detection JSON writer initialized: %s", path)
	return &Writer{file: f, encoder: json.NewEncoder(f)}, nil
}

// WriteGroup implements grouper.Sink.
func (w *Writer) WriteGroup(group string, detections []hunter.Detection) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, d := range detections {
		var fields map[string]interface{}
		if len(d.FieldProjection) > 0 {
			fields = make(map[string]interface{}, len(d.FieldProjection))
			for name, v := range d.FieldProjection {
				fields[name] = v.Any()
			}
		}
		rec := record{
			Timestamp: d.Timestamp,
			RuleID:    d.RuleID,
			RuleName:  d.RuleName,
			RuleGroup: group,
			Level:     string(d.Level),
			Fields:    fields,
		}
		if err := w.encoder.Encode(rec); err != nil {
			return fmt.Errorf("detectionjson: encode detection: %w", err)
		}
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
