package sheetio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// truthyTokens is the set of cell values readers coerce to boolean true
// (spec.md §4.3).
var truthyTokens = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true,
	"✅": true, "✔": true, "ok": true,
}

// dateLayouts are tried in order when coercing a cell to a date
// (spec.md §4.3).
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "01/02/2006"}

// IsBlank reports whether a raw cell value should be treated as absent.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// CoerceString returns the cell as a trimmed string, or "" if blank.
func CoerceString(v any) string {
	if IsBlank(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CoerceBool parses a cell as a boolean using the whitelisted truthy
// tokens; any other non-blank value is false.
func CoerceBool(v any) bool {
	if IsBlank(v) {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	s := strings.ToLower(strings.TrimSpace(CoerceString(v)))
	return truthyTokens[s]
}

// CoerceFloat strips whitespace/commas/currency symbols and parses a cell
// as a float; returns (0, false) if the cell is blank or unparseable.
func CoerceFloat(v any) (float64, bool) {
	if IsBlank(v) {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	s := CoerceString(v)
	s = strings.NewReplacer(",", "", "$", "", "%", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CoerceDate tries each of dateLayouts in order; returns (zero, false) if
// the cell is blank or matches none of them.
func CoerceDate(v any) (time.Time, bool) {
	if IsBlank(v) {
		return time.Time{}, false
	}
	s := CoerceString(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceJSONMap parses a cell as a JSON object of string->float64, the
// shape kpi_contribution_json and similar columns use. Returns
// (nil, false) if blank or not a valid JSON object.
func CoerceJSONMap(v any) (map[string]float64, bool) {
	if IsBlank(v) {
		return nil, false
	}
	var m map[string]float64
	if err := json.Unmarshal([]byte(CoerceString(v)), &m); err != nil {
		return nil, false
	}
	return m, true
}

// CoerceJSONStringList parses a cell as a JSON array of strings (used for
// metric_chain_json and similar list columns).
func CoerceJSONStringList(v any) ([]string, bool) {
	if IsBlank(v) {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal([]byte(CoerceString(v)), &list); err != nil {
		return nil, false
	}
	return list, true
}

// ToSheetSafeValue normalizes a Go value into something a writer may place
// directly into a sheet cell: time.Time/*time.Time become ISO-8601
// strings, maps/slices become JSON strings, everything else passes
// through (spec.md §4.4.1: "For values: normalize to sheet-safe scalars").
func ToSheetSafeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case map[string]float64:
		if len(t) == 0 {
			return ""
		}
		b, _ := json.Marshal(t)
		return string(b)
	case []string:
		if len(t) == 0 {
			return ""
		}
		b, _ := json.Marshal(t)
		return string(b)
	case *float64:
		if t == nil {
			return ""
		}
		return *t
	case *int64:
		if t == nil {
			return ""
		}
		return *t
	default:
		return v
	}
}
