// Package threat holds the declarative rule table evaluated by the telemetry
// collector. Thresholds are data, not code, so they can be tuned from the
// site settings row and tested in isolation.
package threat

import (
	"strings"

	"github.com/skillbridge/console/internal/domain"
)

// Burst window tuning. The raw threshold is scaled linearly by the site
// bot-sensitivity scalar: 0 = relaxed, 1 = strict.
const (
	relaxedBurstThreshold = 20
	strictBurstThreshold  = 10
)

// HoneypotPrefixes are paths no legitimate operator ever requests; a single
// match is treated as a threat signal regardless of rate-window state.
var HoneypotPrefixes = []string{
	"/wp-admin",
	"/admin-php",
	"/.env",
	"/config",
	"/backup",
	"/wp-login.php",
}

// Signal carries the raw inputs for rule evaluation.
type Signal struct {
	Path        string
	BurstCount  int     // events arriving faster than the burst interval
	Sensitivity float64 // site bot-sensitivity, clamped to [0,1]
}

// Finding is a promoted threat.
type Finding struct {
	Type     domain.ThreatType
	Severity domain.Severity
	Note     string
}

// Rule pairs a predicate with the threat it promotes.
type Rule struct {
	Name     string
	Type     domain.ThreatType
	Severity domain.Severity
	Note     string
	Match    func(Signal) bool
}

// DefaultRules is the production rule table.
var DefaultRules = []Rule{
	{
		Name:     "honeypot",
		Type:     domain.ThreatHoneypotAccess,
		Severity: domain.SeverityCritical,
		Note:     "request for a known honeypot path",
		Match: func(s Signal) bool {
			for _, prefix := range HoneypotPrefixes {
				if strings.HasPrefix(s.Path, prefix) {
					return true
				}
			}
			return false
		},
	},
	{
		Name:     "burst",
		Type:     domain.ThreatBotActivity,
		Severity: domain.SeverityHigh,
		Note:     "high frequency interaction detected",
		Match: func(s Signal) bool {
			return s.BurstCount > BurstThreshold(s.Sensitivity)
		},
	},
}

// Evaluate runs every rule against the signal and returns all findings.
func Evaluate(rules []Rule, s Signal) []Finding {
	var findings []Finding
	for _, r := range rules {
		if r.Match(s) {
			findings = append(findings, Finding{Type: r.Type, Severity: r.Severity, Note: r.Note})
		}
	}
	return findings
}

// BurstThreshold maps the bot-sensitivity scalar onto the rate-window
// threshold. Out-of-range sensitivity is clamped.
func BurstThreshold(sensitivity float64) int {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}
	span := float64(relaxedBurstThreshold - strictBurstThreshold)
	return relaxedBurstThreshold - int(sensitivity*span)
}

// IsHoneypot reports whether path matches a honeypot prefix.
func IsHoneypot(path string) bool {
	for _, prefix := range HoneypotPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
