// Package csvbackend persists snapshots to a single CSV file. Binary
// fields ride in text columns: response headers as JSON, the page body
// as base64.
package csvbackend

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/comps/internal/storage"
)

// columns is the header row and the field order of every record.
var columns = []string{
	"id",
	"query",
	"url",
	"status_code",
	"headers_json",
	"body_base64",
	"duration_ms",
	"challenged",
	"challenge_src",
	"fetch_error",
	"created_at",
}

type store struct {
	mu   sync.Mutex
	path string
	out  *os.File // append-only write handle; reads open their own
}

var _ storage.Backend = (*store)(nil)

// New opens (or creates) the CSV file at path, writing the header row
// when the file is empty. Reopening an existing file keeps its rows.
func New(path string) (storage.Backend, error) {
	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	s := &store{path: path, out: out}
	if err := s.writeHeaderIfEmpty(); err != nil {
		out.Close()
		return nil, err
	}
	return s, nil
}

func (s *store) writeHeaderIfEmpty() error {
	info, err := s.out.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() > 0 {
		return nil
	}
	return s.appendRow(columns)
}

// appendRow writes one record and flushes it to the file.
func (s *store) appendRow(row []string) error {
	w := csv.NewWriter(s.out)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv row: %w", err)
	}
	return nil
}

func (s *store) Save(ctx context.Context, snap *storage.Snapshot) error {
	row, err := encodeRow(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRow(row)
}

func (s *store) Query(ctx context.Context, filter storage.Filter) ([]*storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.readMatches(filter)
	if err != nil {
		return nil, err
	}

	// Rows sit in append order; newest-first means walking them backwards.
	slices.Reverse(matches)
	return filter.Page(matches), nil
}

// readMatches scans the file through a fresh read handle, leaving the
// write handle parked at the end. Rows with the wrong width (a crash
// mid-append, hand edits) are skipped rather than failing the query.
func (s *store) readMatches(filter storage.Filter) ([]*storage.Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row width is checked per record below

	first := true
	var matches []*storage.Snapshot
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if first {
			first = false // header row
			continue
		}
		if len(rec) != len(columns) {
			continue
		}
		snap := decodeRow(rec)
		if filter.Matches(snap) {
			matches = append(matches, snap)
		}
	}
	return matches, nil
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}

// encodeRow flattens a snapshot into the columns order.
func encodeRow(snap *storage.Snapshot) ([]string, error) {
	headers, err := json.Marshal(snap.Headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}
	return []string{
		snap.ID,
		snap.Query,
		snap.URL,
		strconv.Itoa(snap.StatusCode),
		string(headers),
		base64.StdEncoding.EncodeToString(snap.Body),
		strconv.FormatInt(snap.Duration.Milliseconds(), 10),
		strconv.FormatBool(snap.Challenged),
		snap.ChallengeSrc,
		snap.FetchError,
		snap.CreatedAt.Format(time.RFC3339Nano),
	}, nil
}

// decodeRow rebuilds a snapshot from one record. Damaged numeric, JSON
// or time cells decode to zero values instead of failing the row.
func decodeRow(rec []string) *storage.Snapshot {
	status, _ := strconv.Atoi(rec[3])
	var headers map[string][]string
	if err := json.Unmarshal([]byte(rec[4]), &headers); err != nil {
		headers = map[string][]string{}
	}
	body, _ := base64.StdEncoding.DecodeString(rec[5])
	durMs, _ := strconv.ParseInt(rec[6], 10, 64)
	challenged, _ := strconv.ParseBool(rec[7])
	created, _ := time.Parse(time.RFC3339Nano, rec[10])

	return &storage.Snapshot{
		ID:           rec[0],
		Query:        rec[1],
		URL:          rec[2],
		StatusCode:   status,
		Headers:      headers,
		Body:         body,
		Duration:     time.Duration(durMs) * time.Millisecond,
		Challenged:   challenged,
		ChallengeSrc: rec[8],
		FetchError:   rec[9],
		CreatedAt:    created,
	}
}
