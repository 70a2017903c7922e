package valuation

// Summary is the per-query output record. Its field names and zero
// defaults are part of the external contract: when Count is zero every
// statistic is exactly 0 and Error carries the reason; otherwise Error is
// empty. RawPrices holds the accepted price strings in acceptance order,
// CleanedPrices the parsed positive values that survived cleaning, so
// Count == len(CleanedPrices) always and len(RawPrices) may be larger.
type Summary struct {
	Query         string    `json:"query"`
	RawPrices     []string  `json:"raw_prices"`
	CleanedPrices []float64 `json:"cleaned_prices"`
	Count         int       `json:"count"`
	AveragePrice  float64   `json:"average_price"`
	MedianPrice   float64   `json:"median_price"`
	MinPrice      float64   `json:"min_price"`
	MaxPrice      float64   `json:"max_price"`
	Error         string    `json:"error,omitempty"`
}

// Priced reports whether the summary carries usable statistics.
func (s Summary) Priced() bool {
	return s.Count > 0 && s.Error == ""
}
