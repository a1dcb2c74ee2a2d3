package ratetable

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"rateintake/internal/domain"
)

// Placeholder is rendered for absent and zero cells.
const Placeholder = "-"

var zeroLikeWords = map[string]bool{
	"": true, "-": true, "--": true, "—": true, "–": true,
	"n/a": true, "na": true, "null": true, "none": true, "nil": true,
}

// ToFloat converts numeric cell values. Strings are not numbers here; use
// ParseRateInput for operator input.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// IsZeroLike reports whether a cell is absent, zero, or a string that only
// spells zero or absence ("0", "$0.00", "n/a", "").
func IsZeroLike(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := ToFloat(v); ok {
		return f == 0
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if zeroLikeWords[s] {
		return true
	}
	digits := stripNonNumeric(s)
	if digits == "" || len(digits) < countDigitLike(s) {
		return false
	}
	f, err := strconv.ParseFloat(digits, 64)
	return err == nil && f == 0
}

// countDigitLike counts characters of s that carry a number's identity, so
// "0 hours" is not mistaken for a zero amount while "$0.00" is.
func countDigitLike(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			n++
		case r == '$' || r == '€' || r == '£' || r == ',' || r == ' ':
		default:
			// any other character makes the value non-numeric
			n += 1000
		}
	}
	return n
}

// FormatCell renders a cell for display: absent and zero values become the
// placeholder, integers render as-is, other numbers with two decimals and
// non-numeric values pass through.
func FormatCell(v any) string {
	if IsZeroLike(v) {
		return Placeholder
	}
	if f, ok := ToFloat(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ParseRateInput coerces operator input for a rate column. Everything but
// digits and the decimal point is stripped; an empty result is absence (nil),
// never zero.
func ParseRateInput(raw string) (any, error) {
	digits := stripNonNumeric(raw)
	if digits == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCellValue, raw)
	}
	return f, nil
}

// EditCell returns a copy of rows with one cell replaced. Rate columns go
// through ParseRateInput; descriptive columns store the trimmed input, or nil
// when it is empty.
func EditCell(rows []domain.RateRow, rowIndex int, columnKey, rawInput string) ([]domain.RateRow, error) {
	if rowIndex < 0 || rowIndex >= len(rows) {
		return nil, fmt.Errorf("%w: rate row %d", domain.ErrNotFound, rowIndex)
	}
	columnKey = strings.TrimSpace(columnKey)
	if columnKey == "" {
		return nil, fmt.Errorf("%w: empty column key", domain.ErrInvalidCellValue)
	}

	var value any
	if IsRate(columnKey) {
		v, err := ParseRateInput(rawInput)
		if err != nil {
			return nil, err
		}
		value = v
	} else if s := strings.TrimSpace(rawInput); s != "" {
		value = s
	}

	out := domain.CloneRows(rows)
	out[rowIndex][columnKey] = value
	return out, nil
}

// AddRow returns a copy of rows with an empty row for columns appended.
func AddRow(rows []domain.RateRow, columns []string) []domain.RateRow {
	row := make(domain.RateRow, len(columns))
	for _, c := range columns {
		row[c] = nil
	}
	return append(domain.CloneRows(rows), row)
}

// RemoveRow returns a copy of rows without the row at index.
func RemoveRow(rows []domain.RateRow, index int) ([]domain.RateRow, error) {
	if index < 0 || index >= len(rows) {
		return nil, fmt.Errorf("%w: rate row %d", domain.ErrNotFound, index)
	}
	out := make([]domain.RateRow, 0, len(rows)-1)
	for i, r := range rows {
		if i != index {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
