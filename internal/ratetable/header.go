package ratetable

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// acronyms replace title-cased words in headers.
var acronyms = map[string]string{
	"us":    "US",
	"usa":   "USA",
	"uk":    "UK",
	"eu":    "EU",
	"emea":  "EMEA",
	"apac":  "APAC",
	"latam": "LATAM",
	"id":    "ID",
	"msa":   "MSA",
	"sow":   "SOW",
	"po":    "PO",
	"hr":    "HR",
}

// currencySuffixes are trailing key words rendered as a unit, e.g.
// "hourly_rate_usd" becomes "Hourly Rate (USD)".
var currencySuffixes = map[string]string{
	"usd": "(USD)",
	"eur": "(EUR)",
	"gbp": "(GBP)",
	"cad": "(CAD)",
}

// CleanHeader turns a raw column key into a display label.
func CleanHeader(key string) string {
	words := splitWords(key)
	if len(words) == 0 {
		return strings.TrimSpace(key)
	}

	var unit string
	if len(words) > 1 {
		if u, ok := currencySuffixes[strings.ToLower(words[len(words)-1])]; ok {
			unit = u
			words = words[:len(words)-1]
		}
	}

	// Casers keep state between calls and must not be shared across goroutines
	titleCaser := cases.Title(language.English)
	out := make([]string, 0, len(words)+1)
	for _, w := range words {
		lw := strings.ToLower(w)
		if a, ok := acronyms[lw]; ok {
			out = append(out, a)
			continue
		}
		out = append(out, titleCaser.String(lw))
	}
	if unit != "" {
		out = append(out, unit)
	}
	return strings.Join(out, " ")
}

// splitWords tokenizes snake_case, kebab-case, spaced and camelCase keys, and
// splits letter runs from digit runs ("region1" -> "region", "1").
func splitWords(key string) []string {
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(strings.TrimSpace(key))
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.' || r == '/':
			flush()
			continue
		case len(cur) > 0:
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsDigit(r) != unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				// "USRate" -> "US", "Rate"
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
