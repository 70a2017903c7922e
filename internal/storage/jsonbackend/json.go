// Package jsonbackend persists snapshots as newline-delimited JSON, one
// document per line. Writes append; Query rescans the whole file and
// filters in memory.
package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/FranksOps/comps/internal/storage"
)

// maxLineSize bounds a single NDJSON line. Marketplace search pages run
// to hundreds of KB of HTML, far past bufio's 64KB default token size.
const maxLineSize = 16 * 1024 * 1024

type store struct {
	mu   sync.Mutex
	path string
	out  *os.File // append-only write handle; reads open their own
}

var _ storage.Backend = (*store)(nil)

// New opens (or creates) the NDJSON file at path.
func New(path string) (storage.Backend, error) {
	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ndjson file: %w", err)
	}
	return &store{path: path, out: out}, nil
}

func (s *store) Save(ctx context.Context, snap *storage.Snapshot) error {
	line, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (s *store) Query(ctx context.Context, filter storage.Filter) ([]*storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.readMatches(filter)
	if err != nil {
		return nil, err
	}

	// Lines sit in append order; newest-first means walking them backwards.
	slices.Reverse(matches)
	return filter.Page(matches), nil
}

// readMatches scans the file through a fresh read handle, leaving the
// write handle parked at the end.
func (s *store) readMatches(filter storage.Filter) ([]*storage.Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ndjson file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var matches []*storage.Snapshot
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		snap := new(storage.Snapshot)
		if err := json.Unmarshal(raw, snap); err != nil {
			return nil, fmt.Errorf("decode snapshot line: %w", err)
		}
		if filter.Matches(snap) {
			matches = append(matches, snap)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ndjson file: %w", err)
	}
	return matches, nil
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
