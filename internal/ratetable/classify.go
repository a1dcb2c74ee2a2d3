// Package ratetable normalizes extracted tabular rate data: it classifies
// columns, prunes degenerate rate columns, orders columns, renders headers and
// cells, and applies operator edits. Everything here is a pure function.
package ratetable

import (
	"regexp"
	"strings"

	"rateintake/internal/domain"
)

// rateTokens mark a column as priced when they appear anywhere in its
// lower-cased, separator-free key. Geography tokens in geographyOrder also
// mark a rate column, but only as whole words.
var rateTokens = []string{"rate", "region", "price", "cost", "bill"}

// regionDigitRe matches short region keys like "r1", "reg2", "tier 3".
var regionDigitRe = regexp.MustCompile(`(^|[^a-z])(r|reg|tier|zone)[ _-]?\d`)

// ClassifyColumn reports whether a column carries rates. Classification is
// case- and separator-insensitive.
func ClassifyColumn(key string) domain.ColumnKind {
	lower := strings.ToLower(strings.TrimSpace(key))
	compact := compactKey(lower)
	for _, tok := range rateTokens {
		if strings.Contains(compact, tok) {
			return domain.ColumnRate
		}
	}
	if geographyRank(splitWords(key)) >= 0 {
		return domain.ColumnRate
	}
	if regionDigitRe.MatchString(lower) {
		return domain.ColumnRate
	}
	return domain.ColumnDescriptive
}

// IsRate is shorthand for ClassifyColumn(key) == domain.ColumnRate.
func IsRate(key string) bool {
	return ClassifyColumn(key) == domain.ColumnRate
}

// compactKey drops separators from an already lower-cased key.
func compactKey(lower string) string {
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch r {
		case '_', '-', ' ', '.', '/':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
