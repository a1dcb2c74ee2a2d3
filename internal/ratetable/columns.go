package ratetable

import (
	"slices"
	"sort"
	"strings"

	"rateintake/internal/domain"
)

// Column is a rendered table column.
type Column struct {
	Key   string            `json:"key"`
	Label string            `json:"label"`
	Kind  domain.ColumnKind `json:"kind"`
}

// Table is a normalized rate table: ordered columns and the rows restricted
// to those columns.
type Table struct {
	Columns []Column         `json:"columns"`
	Rows    []domain.RateRow `json:"rows"`
}

// Keys returns the table's column keys in display order.
func (t Table) Keys() []string {
	keys := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		keys[i] = c.Key
	}
	return keys
}

// geographyOrder is the display order of geography rate columns. Tokens match
// whole words only, so "usage_notes" and "indiana_office" are not geography.
var geographyOrder = []string{
	"onshore", "nearshore", "offshore", "us", "canada", "mexico",
	"uk", "europe", "emea", "india", "apac", "latam",
}

// geographyRank returns the index in geographyOrder of the first geography
// word in words, or -1. "usa" counts as "us".
func geographyRank(words []string) int {
	for i, g := range geographyOrder {
		for _, w := range words {
			lw := strings.ToLower(w)
			if lw == g || (g == "us" && lw == "usa") {
				return i
			}
		}
	}
	return -1
}

const fallbackPriority = 1000

// priority returns the fixed display rank of a column key; keys outside the
// priority list get fallbackPriority.
func priority(key string) int {
	compact := compactKey(strings.ToLower(key))

	hasJobOrRole := strings.Contains(compact, "job") || strings.Contains(compact, "role")
	switch {
	case compact == "code" || (hasJobOrRole && strings.Contains(compact, "code")):
		return 0
	case compact == "title" || compact == "role" || compact == "position" ||
		(hasJobOrRole && (strings.Contains(compact, "title") || strings.Contains(compact, "name"))):
		return 1
	}

	for i, n := range []string{"region1", "region2", "region3"} {
		if strings.Contains(compact, n) {
			return 2 + i
		}
	}

	if i := geographyRank(splitWords(key)); i >= 0 {
		return 10 + i
	}
	return fallbackPriority
}

// OrderColumns returns columns stable-sorted by the fixed priority list, with
// everything else after it in case-insensitive alphabetical order.
func OrderColumns(columns []string) []string {
	out := slices.Clone(columns)
	slices.SortStableFunc(out, func(a, b string) int {
		pa, pb := priority(a), priority(b)
		if pa != pb {
			return pa - pb
		}
		if pa == fallbackPriority {
			return strings.Compare(strings.ToLower(a), strings.ToLower(b))
		}
		return 0
	})
	return out
}

// Columns returns the union of keys across rows in first-seen order. Keys
// within a row are visited in sorted order to keep the result deterministic.
func Columns(rows []domain.RateRow) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// PruneEmptyRateColumns drops rate columns in which every row's value is
// absent, zero, or zero-like. It only prunes when more than one rate column
// exists, never drops descriptive columns, and always keeps at least one rate
// column.
func PruneEmptyRateColumns(rows []domain.RateRow, columns []string) []string {
	var rateCols []string
	for _, c := range columns {
		if IsRate(c) {
			rateCols = append(rateCols, c)
		}
	}
	if len(rateCols) <= 1 {
		return slices.Clone(columns)
	}

	empty := make(map[string]bool, len(rateCols))
	remaining := 0
	for _, c := range rateCols {
		if columnEmpty(rows, c) {
			empty[c] = true
		} else {
			remaining++
		}
	}
	if remaining == 0 {
		// keep the first rate column so the table still has a priced dimension
		delete(empty, rateCols[0])
	}

	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !empty[c] {
			out = append(out, c)
		}
	}
	return out
}

func columnEmpty(rows []domain.RateRow, col string) bool {
	for _, row := range rows {
		if !IsZeroLike(row[col]) {
			return false
		}
	}
	return true
}

// Normalize derives the display table for rows: union of columns, pruned,
// ordered, labeled. Returned rows are copies without the pruned keys.
func Normalize(rows []domain.RateRow) Table {
	all := Columns(rows)
	kept := OrderColumns(PruneEmptyRateColumns(rows, all))

	keep := make(map[string]bool, len(kept))
	cols := make([]Column, len(kept))
	for i, k := range kept {
		keep[k] = true
		cols[i] = Column{Key: k, Label: CleanHeader(k), Kind: ClassifyColumn(k)}
	}

	out := make([]domain.RateRow, len(rows))
	for i, row := range rows {
		r := make(domain.RateRow, len(kept))
		for k, v := range row {
			if keep[k] {
				r[k] = v
			}
		}
		out[i] = r
	}
	return Table{Columns: cols, Rows: out}
}

// Describe labels an already-normalized row set without pruning, so columns
// an operator has touched stay visible.
func Describe(rows []domain.RateRow) Table {
	keys := OrderColumns(Columns(rows))
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Key: k, Label: CleanHeader(k), Kind: ClassifyColumn(k)}
	}
	return Table{Columns: cols, Rows: domain.CloneRows(rows)}
}
