// Package normalize prepares company names for similarity comparison.
// Registry and crawl loaders apply the same normalization at ingest time, so
// two records that spell the same name differently still score as equal.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var legalSuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*(PTY\.?\s+LTD\.?|PTY\.?|LTD\.?|LIMITED|` +
		`INC\.?|INCORPORATED|CORP\.?|CORPORATION|CO\.?|COMPANY|` +
		`LLC|L\.?L\.?C\.?|LLP|L\.?L\.?P\.?|PLC|NL|` +
		`TRUST|THE TRUSTEE FOR)\s*\.?\s*$`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// foldDiacritics strips combining marks after NFD decomposition, so
// "Café" and "Cafe" normalize identically.
var foldDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Name uppercases, folds diacritics and collapses whitespace. It does not
// strip legal suffixes; the registry keeps them in the normalized form.
func Name(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if folded, _, err := transform.String(foldDiacritics, n); err == nil {
		n = folded
	}
	n = strings.ToUpper(n)
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// BareName applies Name and additionally strips trailing legal entity
// suffixes (PTY LTD, LIMITED, ...). Used when comparing a web-derived name,
// which rarely carries the legal form, against a registry name that does.
func BareName(name string) string {
	n := Name(name)
	for {
		stripped := strings.TrimSpace(legalSuffixes.ReplaceAllString(n, ""))
		if stripped == n || stripped == "" {
			return n
		}
		n = stripped
	}
}
