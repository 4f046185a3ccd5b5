// Package jsonl implements the file-backed hunter.RecordSource: one
// record per line, pre-decoded by the external EVTX-to-JSON tooling
// spec §6 assumes ("decoded externally"). This is the default record
// source a hunt run over exported event logs actually drives.
//
// Grounded on internal/analyzer/temporal.go's LoadRowsJSONL scanner
// shape (bufio.Scanner with an enlarged buffer, one JSON object per
// line, blank lines skipped), adapted into a pull iterator instead of
// a load-everything-into-memory helper.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"chainsaw/internal/document"
)

const maxLineSize = 8 * 1024 * 1024

// Source is a hunter.RecordSource reading newline-delimited JSON
// documents from a single file.
type Source struct {
	file    *os.File
	scanner *bufio.Scanner
	path    string
}

// Open creates a record source over one JSONL file.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source/jsonl: open %s: %w", path, err)
	}

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	return &Source{file: f, scanner: scanner, path: path}, nil
}

// Next decodes the next non-blank line into a document.Record. Returns
// io.EOF once the file is exhausted, matching spec §6's "next() ->
// Document | EndOfFile | Error" contract.
func (s *Source) Next(ctx context.Context) (*document.Record, error) {
	for {
		if ctx.Err() != nil {
			return nil, io.EOF
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("source/jsonl: read %s: %w", s.path, err)
			}
			return nil, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("source/jsonl: decode %s: %w", s.path, err)
		}
		return document.NewRecordFromAny(raw), nil
	}
}

// Close releases the underlying file handle.
func (s *Source) Close() error {
	return s.file.Close()
}
