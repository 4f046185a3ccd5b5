package jsonl

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestSourceReadsOneRecordPerLineAndSkipsBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := "{\"EventID\":1}\n\n{\"EventID\":2}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("next (1): %v", err)
	}
	if v := first.Get("EventID"); v.IsAbsent() {
		t.Fatalf("expected EventID in first record")
	}

	second, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("next (2): %v", err)
	}
	if s, _ := second.Get("EventID").Int64(); s != 2 {
		t.Fatalf("expected second EventID=2, got %v", s)
	}

	if _, err := src.Next(ctx); err != io.EOF {
		t.Fatalf("expected io.EOF at end of file, got %v", err)
	}
}

func TestSourceNextReturnsEOFWhenContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte("{\"EventID\":1}\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Next(ctx); err != io.EOF {
		t.Fatalf("expected io.EOF on cancelled context, got %v", err)
	}
}
