package price

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"plain", "Sold for $350.00 on Jan 5", "$350.00", true},
		{"thousands", "Final price $1,234.56 shipped", "$1,234.56", true},
		{"us prefix", "US $129.99 Buy It Now", "US $129.99", true},
		{"space after dollar", "$ 42.00 or best offer", "$ 42.00", true},
		{"first match wins", "Was $500.00 now $450.00", "$500.00", true},
		{"no cents", "Lot of 3 for $75", "$75", true},
		{"single cent digit not captured", "$12.9 clearance", "$12", true},
		{"zero price", "$0 shipping when you buy today", "$0", true},
		{"no price", "Free local pickup only", "", false},
		{"empty", "", "", false},
		{"bare number", "about 350 dollars", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Extract(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"thousands", "$1,234.56", 1234.56, true},
		{"us prefix", "US $129.99", 129.99, true},
		{"range keeps low bound", "$10.50 to $15.00", 10.50, true},
		{"unparseable word", "Free", 0, false},
		{"zero parses", "$0 shipping", 0, true},
		{"trailing text dropped", "$99.95 each", 99.95, true},
		{"integer", "$75", 75, true},
		{"incidental to truncates", "Stock", 0, false},
		{"whitespace padding", "  $ 20.00  ", 20, true},
		{"empty", "", 0, false},
		{"only symbols", "US$,", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Clean(tt.text)
			if ok != tt.ok {
				t.Fatalf("Clean(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("Clean(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractThenClean(t *testing.T) {
	// The pipeline path: whatever Extract accepts, Clean must either parse
	// or reject quietly, never panic.
	texts := []string{
		"Sold $350.00",
		"US $1,999.00 plus tax",
		"$0.50 sticker",
		"$ 5",
	}
	for _, text := range texts {
		raw, ok := Extract(text)
		if !ok {
			t.Fatalf("Extract(%q) found nothing", text)
		}
		if _, ok := Clean(raw); !ok {
			t.Errorf("Clean(%q) rejected a pattern match", raw)
		}
	}
}
