// Package postgres stores snapshots in PostgreSQL through a pgx
// connection pool, for deployments where several runners share one
// snapshot archive.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FranksOps/comps/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS page_snapshots (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers JSONB NOT NULL,
	body BYTEA,
	duration_ms BIGINT NOT NULL,
	challenged BOOLEAN NOT NULL,
	challenge_src TEXT,
	fetch_error TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_page_snapshots_query ON page_snapshots (query, created_at DESC);
`

const cols = `id, query, url, status_code, headers, body, duration_ms, challenged, challenge_src, fetch_error, created_at`

// Saving an id twice replaces the earlier row, matching the sqlite
// backend's INSERT OR REPLACE.
const insertStmt = `
INSERT INTO page_snapshots (` + cols + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	query = EXCLUDED.query,
	url = EXCLUDED.url,
	status_code = EXCLUDED.status_code,
	headers = EXCLUDED.headers,
	body = EXCLUDED.body,
	duration_ms = EXCLUDED.duration_ms,
	challenged = EXCLUDED.challenged,
	challenge_src = EXCLUDED.challenge_src,
	fetch_error = EXCLUDED.fetch_error,
	created_at = EXCLUDED.created_at
`

type store struct {
	pool *pgxpool.Pool
}

var _ storage.Backend = (*store)(nil)

// New connects to Postgres, verifies the connection, and applies the
// snapshot schema.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &store{pool: pool}, nil
}

func (s *store) Save(ctx context.Context, snap *storage.Snapshot) error {
	headers, err := json.Marshal(snap.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	_, err = s.pool.Exec(ctx, insertStmt,
		snap.ID, snap.Query, snap.URL, snap.StatusCode, headers, snap.Body,
		snap.Duration.Milliseconds(), snap.Challenged, snap.ChallengeSrc, snap.FetchError, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *store) Query(ctx context.Context, filter storage.Filter) ([]*storage.Snapshot, error) {
	stmt, args := buildQuery(filter)

	rows, err := s.pool.Query(ctx, stmt, args...)
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
	s.pool.Close()
	return nil
}

// buildQuery turns a filter into a SELECT statement with numbered
// placeholders, newest snapshots first.
func buildQuery(filter storage.Filter) (string, []any) {
	var preds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		preds = append(preds, `query = `+arg(filter.Query))
	}
	if filter.URL != "" {
		preds = append(preds, `url = `+arg(filter.URL))
	}
	if filter.Challenged != nil {
		preds = append(preds, `challenged = `+arg(*filter.Challenged))
	}
	if filter.Since != nil {
		preds = append(preds, `created_at >= `+arg(*filter.Since))
	}

	stmt := `SELECT ` + cols + ` FROM page_snapshots`
	if len(preds) > 0 {
		stmt += ` WHERE ` + strings.Join(preds, ` AND `)
	}
	stmt += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		stmt += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		stmt += ` OFFSET ` + arg(filter.Offset)
	}
	return stmt, args
}

func scanSnapshot(rows pgx.Rows) (*storage.Snapshot, error) {
	var (
		snap       storage.Snapshot
		rawHeaders []byte
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
	if err := json.Unmarshal(rawHeaders, &snap.Headers); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	return &snap, nil
}
