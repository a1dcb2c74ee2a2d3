// Package mapper reconciles raw extraction results into a NormalizedRecord.
package mapper

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"rateintake/internal/domain"
)

// Merge fills the empty fields of existing from raw and returns the result.
// For each field it tries flat keys on raw first, then the same keys nested
// under the known containers; the first non-empty candidate wins. Fields that
// already hold a value are never overwritten, so merging the same raw twice
// gives the same record as merging it once. Merge does not modify existing.
func Merge(existing domain.NormalizedRecord, raw domain.ExtractionResult) domain.NormalizedRecord {
	out := existing.Clone()
	if len(raw) == 0 {
		return out
	}

	top := index(raw)
	for _, f := range Fields {
		if !f.IsEmpty(&out) {
			continue
		}
		if v, ok := resolve(f, top); ok {
			// resolve only returns values Set accepts
			_ = f.Set(&out, v)
		}
	}
	return out
}

// MergeAll folds results into existing in arrival order.
func MergeAll(existing domain.NormalizedRecord, results ...domain.ExtractionResult) domain.NormalizedRecord {
	out := existing.Clone()
	for _, r := range results {
		out = Merge(out, r)
	}
	return out
}

// Resolved lists the field names raw would provide a value for, regardless of
// what a record already holds.
func Resolved(raw domain.ExtractionResult) []string {
	top := index(raw)
	var names []string
	for _, f := range Fields {
		if _, ok := resolve(f, top); ok {
			names = append(names, f.Name)
		}
	}
	return names
}

func resolve(f Field, top keyIndex) (string, bool) {
	for _, k := range f.flatKeys() {
		if v, ok := candidate(f, top.get(k)); ok {
			return v, true
		}
	}
	for _, c := range f.containers() {
		nested, ok := asMap(top.get(c))
		if !ok {
			continue
		}
		inner := index(nested)
		for _, k := range f.nestedKeys() {
			if v, ok := candidate(f, inner.get(k)); ok {
				return v, true
			}
		}
	}
	return "", false
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.ExtractionResult:
		return t, true
	}
	return nil, false
}

// candidate converts a raw value into the field's string form. Empty strings,
// nil, containers and values of the wrong shape are not candidates.
func candidate(f Field, v any) (string, bool) {
	if f.kind == kindBool {
		switch t := v.(type) {
		case bool:
			if t {
				return "true", true
			}
			return "false", true
		case string:
			if b, ok := parseBool(t); ok {
				return strconv.FormatBool(b), true
			}
		}
		return "", false
	}

	s, ok := scalarString(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// keyIndex maps normalized keys to values. When two raw keys normalize to the
// same form the lexically smallest raw key wins, keeping resolution
// deterministic.
type keyIndex map[string]any

func index(m map[string]any) keyIndex {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idx := make(keyIndex, len(m))
	for _, k := range keys {
		nk := normalizeKey(k)
		if _, seen := idx[nk]; !seen {
			idx[nk] = m[k]
		}
	}
	return idx
}

func (idx keyIndex) get(key string) any {
	return idx[normalizeKey(key)]
}
