// Package price recognizes marketplace currency strings inside listing
// text and normalizes them to numeric values.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

// pattern describes a US-dollar price as it appears in listing text: an
// optional "US" prefix, the dollar sign, optional whitespace, 1-3 leading
// digits, optional comma-separated thousands groups, and optional cents
// (exactly two digits). "$1,234.56", "US $129.99" and "$5" all match;
// "$12.9" matches only its "$12" head.
var pattern = regexp.MustCompile(`(?:US\s*)?\$\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

// Extract returns the first price-shaped substring in document order, or
// ok=false when the text holds nothing that looks like a dollar amount.
func Extract(text string) (string, bool) {
	m := pattern.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}

// Clean converts raw matched price text into a number. Range text such as
// "$10.50 to $15.00" collapses to its low bound. Unparseable input returns
// ok=false, an unusable price rather than an error; callers shrink their
// sample and move on. Positivity is not enforced here: "$0 shipping"
// cleans to 0 and gets dropped downstream.
func Clean(text string) (float64, bool) {
	// Textual ranges keep only the low bound. This runs before any
	// stripping, so incidental "to" fragments truncate the same way the
	// range form does.
	if i := strings.Index(text, "to"); i >= 0 {
		text = text[:i]
	}

	text = strings.ReplaceAll(text, "US", "")
	text = strings.ReplaceAll(text, "$", "")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)

	// Keep only the first whitespace-delimited fragment in case trailing
	// shipping or currency text got glued onto the match.
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}

	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
