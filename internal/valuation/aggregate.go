package valuation

import (
	"sort"
	"strings"

	"github.com/FranksOps/comps/internal/analyzer"
	"github.com/FranksOps/comps/internal/listing"
	"github.com/FranksOps/comps/internal/metrics"
	"github.com/FranksOps/comps/internal/price"
)

// NoListingsMessage is the Summary error for a query where the filter
// cascade accepted nothing usable. It is distinct from any fetch-failure
// message, so callers can tell "the market had nothing" from "we never saw
// the market".
const NoListingsMessage = "No matching sold NEW listings found."

// placeholderTitle marks the marketplace's promo tile that leads most
// result pages. Substring test: the tile's title sometimes carries
// decorations around the phrase.
const placeholderTitle = "shop on ebay"

// Aggregate runs the filter cascade over candidates in input order and
// builds the price summary for query. Scanning stops the moment
// maxResults raw prices have been accepted; later candidates are never
// inspected. Candidates are never reordered or deduplicated; the caller's
// most-recent-first ordering is what makes the sample "current".
//
// Aggregate never fails for data-quality reasons: every degraded outcome
// comes back inside the Summary. A non-positive maxResults is caller
// misuse and panics.
func Aggregate(candidates []listing.Listing, query string, maxResults int) Summary {
	if maxResults <= 0 {
		panic("valuation: maxResults must be positive")
	}

	raw := []string{}
	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			metrics.RecordRejection("blank_title")
			continue
		}
		if strings.Contains(strings.ToLower(title), placeholderTitle) {
			metrics.RecordRejection("placeholder")
			continue
		}
		if !analyzer.TitleMatches(title, query) {
			metrics.RecordRejection("title_mismatch")
			continue
		}
		if analyzer.IsAccessory(title) {
			metrics.RecordRejection("accessory")
			continue
		}

		text, ok := price.Extract(c.Text)
		if !ok {
			metrics.RecordRejection("no_price")
			continue
		}

		raw = append(raw, text)
		metrics.RecordAccepted()
		if len(raw) >= maxResults {
			break
		}
	}

	cleaned := []float64{}
	for _, r := range raw {
		v, ok := price.Clean(r)
		if !ok || v <= 0 {
			continue
		}
		cleaned = append(cleaned, v)
	}

	return summarize(query, raw, cleaned)
}

// summarize fills the Summary from the accepted raw strings and the
// surviving cleaned values. CleanedPrices keeps acceptance order; the
// median sorts a copy.
func summarize(query string, raw []string, cleaned []float64) Summary {
	s := Summary{
		Query:         query,
		RawPrices:     raw,
		CleanedPrices: cleaned,
		Count:         len(cleaned),
	}

	if s.Count == 0 {
		s.Error = NoListingsMessage
		return s
	}

	var sum float64
	minP, maxP := cleaned[0], cleaned[0]
	for _, v := range cleaned {
		sum += v
		if v < minP {
			minP = v
		}
		if v > maxP {
			maxP = v
		}
	}

	s.AveragePrice = sum / float64(s.Count)
	s.MedianPrice = median(cleaned)
	s.MinPrice = minP
	s.MaxPrice = maxP
	return s
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
