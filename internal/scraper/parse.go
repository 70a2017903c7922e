package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/FranksOps/comps/internal/listing"
)

// cardSelectors are tried in order and the first with any hits wins. eBay
// has shipped several generations of result markup and mixes them across
// TLDs, so the parser degrades through known layouts.
var cardSelectors = []string{
	"div[class*='card-container']",
	"li.s-item",
	"div.s-item__info.clearfix",
	"div.s-item__info",
}

// parseListings extracts candidate listings from a search results page. The
// body is decoded per its declared charset before parsing. No filtering
// happens here: promo tiles and accessory listings flow through for the
// valuation cascade to reject.
func parseListings(body []byte, contentType string) ([]listing.Listing, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil, nil
	}

	listings := make([]listing.Listing, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		title := collapseWhitespace(card.Find("a[href*='/itm/']").First().Text())
		listings = append(listings, listing.Listing{
			Title: title,
			Text:  collapseWhitespace(card.Text()),
		})
	})

	return listings, nil
}

// collapseWhitespace flattens runs of whitespace, including the newlines that
// block elements contribute, into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
