// Package detect classifies fetched pages as genuine search results or
// as the challenge/block pages served in front of them.
package detect

import (
	"bytes"
	"net/http"
	"slices"
	"strings"

	"github.com/FranksOps/comps/internal/storage"
)

// signature describes one family of challenge pages: an optional status
// gate, a Server header token, and body markers.
type signature struct {
	source  string
	status  []int    // match only these codes; empty matches any
	server  string   // lowercase substring of the Server header
	bodyAny []string // one marker in the body is a hit
	bodyAll []string // every marker must appear
}

// signatures covers what eBay and the CDNs in front of it serve instead
// of results. The interstitial and captcha pages regularly arrive with
// HTTP 200, so neither carries a status gate.
var signatures = []signature{
	{
		source: "Interstitial",
		bodyAny: []string{
			"Pardon Our Interruption",
			"Please verify yourself",
			"splashui/challenge",
		},
	},
	{
		source: "Captcha",
		bodyAny: []string{
			"hcaptcha.com/1/api.js",
			"www.google.com/recaptcha/api.js",
			"g-recaptcha",
		},
	},
	{
		source: "Cloudflare",
		status: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		server: "cloudflare",
		bodyAny: []string{
			"cf-browser-verification",
			"cloudflare-nginx",
			"cf-turnstile",
			"Attention Required! | Cloudflare",
		},
	},
	{
		source:  "Akamai",
		status:  []int{http.StatusForbidden},
		server:  "akamai",
		bodyAll: []string{"Reference #", "Access Denied"},
	},
}

// Analyze checks the snapshot against the built-in signatures and
// records the verdict on it, reporting whether a challenge page matched.
// On a clean page both challenge fields are reset.
func Analyze(snap *storage.Snapshot) bool {
	if snap == nil {
		return false
	}
	for _, sig := range signatures {
		if sig.match(snap) {
			snap.Challenged = true
			snap.ChallengeSrc = sig.source
			return true
		}
	}
	snap.Challenged = false
	snap.ChallengeSrc = ""
	return false
}

func (sig signature) match(snap *storage.Snapshot) bool {
	if len(sig.status) > 0 && !slices.Contains(sig.status, snap.StatusCode) {
		return false
	}
	if sig.server != "" && strings.Contains(serverHeader(snap.Headers), sig.server) {
		return true
	}
	for _, marker := range sig.bodyAny {
		if bytes.Contains(snap.Body, []byte(marker)) {
			return true
		}
	}
	if len(sig.bodyAll) == 0 {
		return false
	}
	for _, marker := range sig.bodyAll {
		if !bytes.Contains(snap.Body, []byte(marker)) {
			return false
		}
	}
	return true
}

// serverHeader returns the lowercased Server value. Headers reloaded
// from storage keep their stored casing, so this cannot lean on
// http.Header canonicalization.
func serverHeader(headers map[string][]string) string {
	for k, vals := range headers {
		if strings.EqualFold(k, "Server") && len(vals) > 0 {
			return strings.ToLower(vals[0])
		}
	}
	return ""
}
