package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/FranksOps/comps/internal/valuation"
)

func sampleSummaries() []valuation.Summary {
	return []valuation.Summary{
		{
			Query:         "iphone 12",
			RawPrices:     []string{"$350.00", "$410.00"},
			CleanedPrices: []float64{350, 410},
			Count:         2,
			AveragePrice:  380,
			MedianPrice:   380,
			MinPrice:      350,
			MaxPrice:      410,
		},
		{
			Query:         "discontinued widget",
			RawPrices:     []string{},
			CleanedPrices: []float64{},
			Error:         valuation.NoListingsMessage,
		},
		{
			Query:         "ps5 console",
			RawPrices:     []string{},
			CleanedPrices: []float64{},
			Error:         "request failed: context deadline exceeded",
		},
	}
}

func TestBuild(t *testing.T) {
	r := Build(sampleSummaries())

	if r.TotalQueries != 3 {
		t.Errorf("expected 3 total queries, got %d", r.TotalQueries)
	}
	if r.PricedQueries != 1 {
		t.Errorf("expected 1 priced query, got %d", r.PricedQueries)
	}
	if r.FailedQueries != 2 {
		t.Errorf("expected 2 failed queries, got %d", r.FailedQueries)
	}
	if r.TotalSamples != 2 {
		t.Errorf("expected 2 sold samples, got %d", r.TotalSamples)
	}
	if r.ErrorCounts[valuation.NoListingsMessage] != 1 {
		t.Errorf("expected 1 no-listings error, got %d", r.ErrorCounts[valuation.NoListingsMessage])
	}
	if r.GeneratedAt.IsZero() {
		t.Errorf("expected GeneratedAt to be set")
	}
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil)
	if r.TotalQueries != 0 || r.PricedQueries != 0 || r.FailedQueries != 0 {
		t.Errorf("expected zeroed totals, got %+v", r)
	}
}

func TestWriteJSON(t *testing.T) {
	r := Build(sampleSummaries())

	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"total_queries": 3`) {
		t.Errorf("expected JSON to contain total_queries: 3, got %s", out)
	}
	if !strings.Contains(out, `"average_price": 380`) {
		t.Errorf("expected JSON to carry per-query stats")
	}
	if !strings.Contains(out, `"raw_prices": [`) {
		t.Errorf("expected raw prices array in JSON")
	}
}

func TestWriteText(t *testing.T) {
	r := Build(sampleSummaries())

	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Queries:      3 (1 priced, 2 failed)") {
		t.Errorf("expected totals line, got:\n%s", out)
	}
	if !strings.Contains(out, "iphone 12: n=2 avg=$380.00 median=$380.00 range=$350.00-$410.00") {
		t.Errorf("expected priced result line, got:\n%s", out)
	}
	if !strings.Contains(out, "discontinued widget: "+valuation.NoListingsMessage) {
		t.Errorf("expected failed result line, got:\n%s", out)
	}
	if !strings.Contains(out, "1x "+valuation.NoListingsMessage) {
		t.Errorf("expected error spread, got:\n%s", out)
	}
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Build(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "None") {
		t.Errorf("expected None placeholders for empty report")
	}
}

func TestWriteHTML(t *testing.T) {
	r := Build(sampleSummaries())

	var buf bytes.Buffer
	if err := WriteHTML(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>Comps Valuation Report</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, "<td>iphone 12</td>") {
		t.Errorf("expected per-query row")
	}
	if !strings.Contains(out, "$380.00") {
		t.Errorf("expected formatted average")
	}
}

func TestWriteHTMLEscapesQuery(t *testing.T) {
	r := Build([]valuation.Summary{{
		Query: "<script>alert(1)</script>",
		Error: "request failed",
	}})

	var buf bytes.Buffer
	if err := WriteHTML(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Errorf("expected query to be escaped in HTML output")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("expected escaped entity in HTML output")
	}
}
