package analyzer

import "strings"

// accessoryKeywords flag listings for peripheral products sold alongside
// the primary item. Matching is plain substring containment on the
// lowercased title, so "Casework" and "Briefcase" both trip "case".
// Order matters only for readability.
var accessoryKeywords = []string{
	"case",
	"charger",
	"cable",
	"screen protector",
	"protector",
	"adapter",
	"dock",
	"stand",
	"mount",
	"holder",
	"skin",
	"cover",
	"glass",
	"tempered",
	"wallet",
	"strap",
	"band",
	"cord",
	"hub",
	"battery",
	"power bank",
	"charging pad",
}

// IsAccessory reports whether the title names an accessory rather than the
// primary item. Only lowercasing is applied before the check; punctuation
// stays put so multi-word keywords like "screen protector" match the raw
// title text.
func IsAccessory(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range accessoryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
