package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/comps/internal/valuation"
)

// Report aggregates a batch of query valuations for rendering. Writers only
// render; nothing here persists anything.
type Report struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	TotalQueries  int                 `json:"total_queries"`
	PricedQueries int                 `json:"priced_queries"`
	FailedQueries int                 `json:"failed_queries"`
	TotalSamples  int                 `json:"total_samples"`
	ErrorCounts   map[string]int      `json:"error_counts,omitempty"`
	Summaries     []valuation.Summary `json:"summaries"`
}

// Build rolls a batch of summaries up into a Report.
func Build(summaries []valuation.Summary) Report {
	r := Report{
		GeneratedAt: time.Now().UTC(),
		ErrorCounts: make(map[string]int),
		Summaries:   summaries,
	}

	for _, s := range summaries {
		r.TotalQueries++
		r.TotalSamples += s.Count
		if s.Priced() {
			r.PricedQueries++
		}
		if s.Error != "" {
			r.FailedQueries++
			r.ErrorCounts[s.Error]++
		}
	}

	return r
}

// WriteJSON writes the report to the provided writer in JSON format.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

var textTmpl = template.Must(template.New("text").Parse(`Comps Valuation Report
----------------------
Generated:    {{.GeneratedAt.Format "2006-01-02 15:04:05"}}
Queries:      {{.TotalQueries}} ({{.PricedQueries}} priced, {{.FailedQueries}} failed)
Sold Samples: {{.TotalSamples}}

Results:
{{- range .Summaries}}
  {{.Query}}: {{if .Error}}{{.Error}}{{else}}n={{.Count}} avg=${{printf "%.2f" .AveragePrice}} median=${{printf "%.2f" .MedianPrice}} range=${{printf "%.2f" .MinPrice}}-${{printf "%.2f" .MaxPrice}}{{end}}
{{- else}}
  None
{{- end}}

Errors:
{{- range $msg, $count := .ErrorCounts}}
  {{$count}}x {{$msg}}
{{- else}}
  None
{{- end}}
`))

// WriteText writes a human-readable text report to the provided writer.
func WriteText(w io.Writer, r Report) error {
	if err := textTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Comps Valuation Report</title>
<style>
  body { font-family: ui-sans-serif, system-ui, sans-serif; max-width: 900px; margin: 2em auto; color: #222; }
  .meta { color: #667; }
  .metric { display: inline-block; min-width: 130px; margin: 0 12px 18px 0; padding: 12px 16px; background: #f6f6f3; border: 1px solid #e3e3dd; border-radius: 4px; }
  .metric b { display: block; font-size: 22px; margin-top: 4px; }
  table { border-collapse: collapse; width: 100%; }
  th, td { padding: 6px 10px; border-bottom: 1px solid #ddd; text-align: left; }
  th { border-bottom-width: 2px; }
  .err { color: #b00020; }
  .ok { color: #1a7f37; }
</style>
</head>
<body>
  <h1>Comps Valuation Report</h1>
  <p class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} UTC</p>

  <div class="metric">Queries<b>{{.TotalQueries}}</b></div>
  <div class="metric">Priced<b>{{.PricedQueries}}</b></div>
  <div class="metric">Failed<b class="{{if gt .FailedQueries 0}}err{{else}}ok{{end}}">{{.FailedQueries}}</b></div>
  <div class="metric">Sold samples<b>{{.TotalSamples}}</b></div>

  <h3>Per-query results</h3>
  <table>
    <tr><th>Query</th><th>Samples</th><th>Average</th><th>Median</th><th>Min</th><th>Max</th></tr>
    {{- range .Summaries}}
    <tr>
      <td>{{.Query}}</td>
      {{- if .Error}}
      <td colspan="5" class="err">{{.Error}}</td>
      {{- else}}
      <td>{{.Count}}</td>
      <td>{{printf "$%.2f" .AveragePrice}}</td>
      <td>{{printf "$%.2f" .MedianPrice}}</td>
      <td>{{printf "$%.2f" .MinPrice}}</td>
      <td>{{printf "$%.2f" .MaxPrice}}</td>
      {{- end}}
    </tr>
    {{- else}}
    <tr><td colspan="6">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`))

// WriteHTML writes a self-contained HTML report to the provided writer.
// Queries and error strings come from outside, hence html/template.
func WriteHTML(w io.Writer, r Report) error {
	if err := htmlTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
