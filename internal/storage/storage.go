package storage

import (
	"context"
	"time"
)

// Snapshot is one fetched search-results page, kept for debugging and
// offline re-parsing when snapshot saving is enabled. Fetch failures are
// recorded in the snapshot itself (FetchError), not raised, so blocked and
// broken fetches leave the same audit trail as good ones.
type Snapshot struct {
	ID           string              `json:"id"`
	Query        string              `json:"query"`
	URL          string              `json:"url"`
	StatusCode   int                 `json:"status_code"`
	Headers      map[string][]string `json:"headers"`
	Body         []byte              `json:"body"`
	Duration     time.Duration       `json:"duration"`
	Challenged   bool                `json:"challenged"`
	ChallengeSrc string              `json:"challenge_src"` // e.g. "Cloudflare", "Akamai", "Captcha"
	FetchError   string              `json:"fetch_error"`   // non-empty if the fetch failed before/during the HTTP exchange
	CreatedAt    time.Time           `json:"created_at"`
}

// Filter narrows Query results. The zero value matches every snapshot.
type Filter struct {
	Query      string
	URL        string
	Challenged *bool
	Since      *time.Time
	Limit      int
	Offset     int
}

// Matches reports whether a snapshot passes the filter's field
// constraints. Limit and Offset are pagination, not predicates, and are
// ignored here; backends apply them after ordering.
func (f Filter) Matches(s *Snapshot) bool {
	if s == nil {
		return false
	}
	if f.Query != "" && s.Query != f.Query {
		return false
	}
	if f.URL != "" && s.URL != f.URL {
		return false
	}
	if f.Challenged != nil && s.Challenged != *f.Challenged {
		return false
	}
	if f.Since != nil && s.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies the filter's Offset and Limit to an already-ordered
// result set. An offset past the end yields an empty page, not an error.
func (f Filter) Page(snaps []*Snapshot) []*Snapshot {
	if f.Offset > 0 {
		if f.Offset >= len(snaps) {
			return []*Snapshot{}
		}
		snaps = snaps[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(snaps) {
		snaps = snaps[:f.Limit]
	}
	return snaps
}

// Backend persists page snapshots. Query returns matches newest-first.
type Backend interface {
	Save(ctx context.Context, snap *Snapshot) error
	Query(ctx context.Context, filter Filter) ([]*Snapshot, error)
	Close() error
}
