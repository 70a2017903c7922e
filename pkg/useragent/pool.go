package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// Default is the desktop Chrome identity sent when rotation is disabled.
// Sold-listing search pages render the same markup for any modern desktop
// browser, so one stable identity per run is the normal mode.
const Default = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults holds current desktop browser identities for callers that do
// want rotation.
var Defaults = []string{
	Default,
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// Pool hands out User-Agent strings, round-robin or at random. Safe for
// concurrent use.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// New builds a pool over the given identities. With no arguments the pool
// serves Defaults. The input is copied.
func New(uas ...string) *Pool {
	if len(uas) == 0 {
		uas = Defaults
	}
	return &Pool{uas: append([]string(nil), uas...)}
}

// NewFixed builds a single-identity pool; every call returns ua. An empty
// ua means Default.
func NewFixed(ua string) *Pool {
	if ua == "" {
		ua = Default
	}
	return &Pool{uas: []string{ua}}
}

// Next returns the pool's identities in round-robin order.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	i := (p.counter.Add(1) - 1) % uint64(len(p.uas))
	return p.uas[i]
}

// Random returns one identity chosen with crypto/rand. If the random read
// fails it degrades to round-robin rather than repeating a fixed entry.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	size := big.NewInt(int64(len(p.uas)))
	n, err := rand.Int(rand.Reader, size)
	if err != nil {
		return p.Next()
	}
	return p.uas[n.Int64()]
}

// All returns a copy of the pool's identities.
func (p *Pool) All() []string {
	return append([]string(nil), p.uas...)
}
