package listing

import "context"

// Listing is one search-result entry as the valuation pipeline sees it.
// Title feeds the relevance and accessory checks; Text is the aggregate
// visible text of the entry and is only scanned for price fragments.
// The pipeline never inspects markup.
type Listing struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Source supplies the candidate listings for a query, in the order the
// marketplace returned them (most recently ended first). Implementations
// own all transport and parsing concerns. A failure to obtain listings at
// all is reported through the returned error; the caller folds it into the
// query's result rather than propagating it.
type Source interface {
	Listings(ctx context.Context, query string) ([]Listing, error)
}
