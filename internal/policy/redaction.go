// Package policy masks customer PII before conversation text leaves the process.
package policy

import "regexp"

// Rule replaces every match of Pattern with Marker.
type Rule struct {
	Kind    string
	Pattern *regexp.Regexp
	Marker  string
}

// Card and SSN run before phone so long digit runs are not classified as phone numbers.
var defaultRules = []Rule{
	{Kind: "email", Pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), Marker: "[REDACTED_EMAIL]"},
	{Kind: "card", Pattern: regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), Marker: "[REDACTED_CARD]"},
	{Kind: "ssn", Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), Marker: "[REDACTED_SSN]"},
	{Kind: "phone", Pattern: regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), Marker: "[REDACTED_PHONE]"},
}

// Redactor applies its rules in order.
type Redactor struct {
	rules []Rule
}

func NewRedactor(rules ...Rule) *Redactor {
	if len(rules) == 0 {
		rules = defaultRules
	}
	return &Redactor{rules: rules}
}

// Redact returns the masked text and the kinds of PII that were found.
func (r *Redactor) Redact(input string) (string, []string) {
	out := input
	var kinds []string
	for _, rule := range r.rules {
		next := rule.Pattern.ReplaceAllString(out, rule.Marker)
		if next != out {
			kinds = append(kinds, rule.Kind)
			out = next
		}
	}
	return out, kinds
}

var defaultRedactor = NewRedactor()

// RedactPII masks common high-risk PII patterns with the default rules.
func RedactPII(input string) (redacted string, changed bool) {
	out, kinds := defaultRedactor.Redact(input)
	return out, len(kinds) > 0
}
