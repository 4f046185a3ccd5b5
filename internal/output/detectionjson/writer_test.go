package detectionjson

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chainsaw/internal/document"
	"chainsaw/internal/hunter"
)

func TestWriterEmitsOneJSONLinePerDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	detections := []hunter.Detection{
		{
			Timestamp: ts,
			RuleID:    "r1",
			RuleName:  "Suspicious whoami",
			Level:     "high",
			FieldProjection: map[string]document.Value{
				"CommandLine": document.String("whoami /all"),
			},
		},
		{Timestamp: ts.Add(time.Minute), RuleID: "r2", RuleName: "Other", Level: "medium"},
	}

	if err := w.WriteGroup("process_creation", detections); err != nil {
		t.Fatalf("write group: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first.RuleID != "r1" || first.RuleGroup != "process_creation" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Fields["CommandLine"] != "whoami /all" {
		t.Fatalf("unexpected projected field: %+v", first.Fields)
	}
}
