// Package sqlite stores snapshots in an embedded SQLite database via
// the cgo-free modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/FranksOps/comps/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS page_snapshots (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers TEXT NOT NULL,
	body BLOB,
	duration_ms INTEGER NOT NULL,
	challenged BOOLEAN NOT NULL,
	challenge_src TEXT,
	fetch_error TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_page_snapshots_query ON page_snapshots (query, created_at);
`

const cols = `id, query, url, status_code, headers, body, duration_ms, challenged, challenge_src, fetch_error, created_at`

const insertStmt = `INSERT OR REPLACE INTO page_snapshots (` + cols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type store struct {
	db *sql.DB
}

var _ storage.Backend = (*store)(nil)

// New opens a SQLite-backed snapshot store and applies the schema. The
// dsn is a file path or any modernc.org/sqlite connection string
// (file::memory:?cache=shared works for tests).
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Save(ctx context.Context, snap *storage.Snapshot) error {
	headers, err := json.Marshal(snap.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertStmt,
		snap.ID, snap.Query, snap.URL, snap.StatusCode, string(headers), snap.Body,
		snap.Duration.Milliseconds(), snap.Challenged, snap.ChallengeSrc, snap.FetchError, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *store) Query(ctx context.Context, filter storage.Filter) ([]*storage.Snapshot, error) {
	stmt, args := buildQuery(filter)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*storage.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// buildQuery turns a filter into a SELECT statement and its arguments,
// newest snapshots first.
func buildQuery(filter storage.Filter) (string, []any) {
	var preds []string
	var args []any

	if filter.Query != "" {
		preds = append(preds, `query = ?`)
		args = append(args, filter.Query)
	}
	if filter.URL != "" {
		preds = append(preds, `url = ?`)
		args = append(args, filter.URL)
	}
	if filter.Challenged != nil {
		preds = append(preds, `challenged = ?`)
		args = append(args, *filter.Challenged)
	}
	if filter.Since != nil {
		preds = append(preds, `created_at >= ?`)
		args = append(args, *filter.Since)
	}

	stmt := `SELECT ` + cols + ` FROM page_snapshots`
	if len(preds) > 0 {
		stmt += ` WHERE ` + strings.Join(preds, ` AND `)
	}
	stmt += ` ORDER BY created_at DESC`

	switch {
	case filter.Limit > 0:
		stmt += ` LIMIT ?`
		args = append(args, filter.Limit)
	case filter.Offset > 0:
		// sqlite rejects OFFSET without LIMIT; -1 means unbounded
		stmt += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		stmt += ` OFFSET ?`
		args = append(args, filter.Offset)
	}
	return stmt, args
}

func scanSnapshot(rows *sql.Rows) (*storage.Snapshot, error) {
	var (
		snap       storage.Snapshot
		rawHeaders string
		durMs      int64
	)
	err := rows.Scan(
		&snap.ID, &snap.Query, &snap.URL, &snap.StatusCode, &rawHeaders, &snap.Body,
		&durMs, &snap.Challenged, &snap.ChallengeSrc, &snap.FetchError, &snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot row: %w", err)
	}

	snap.Duration = time.Duration(durMs) * time.Millisecond
	if err := json.Unmarshal([]byte(rawHeaders), &snap.Headers); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	return &snap, nil
}
