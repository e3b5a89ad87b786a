// Package sheetio holds the Header Resolver, the abstract Sheet I/O
// capability, and the Provenance Stamper (spec.md §4.2-4.4) — the narrow
// surface every reader and writer depends on instead of a concrete
// spreadsheet client, grounded on the teacher's narrow-repository-interface
// pattern (internal/app/storage in the teacher repo) applied to an
// external collaborator rather than a database.
package sheetio

import "strings"

// Normalize lowercases, trims, and collapses separators to underscores, so
// "Requester Name", "requester_name" and "Requester-Name " all resolve to
// the same canonical token.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '/', '\t':
			return '_'
		default:
			return r
		}
	}, s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// AliasMap maps a canonical field name to every header variant a tab might
// use for it. It is the single place column-name variation is declared;
// readers and writers never special-case a header string directly.
type AliasMap map[string][]string

// ResolveIndices returns, for each canonical name in aliases that matches
// one of the given headers (by normalized equality against the canonical
// name itself or any of its variants), the header's 0-based column index.
// Canonical names with no matching header are simply absent from the
// result — this is not an error, since readers default unmatched fields to
// blank.
func ResolveIndices(headers []string, aliases AliasMap) map[string]int {
	normalizedHeaders := make([]string, len(headers))
	for i, h := range headers {
		normalizedHeaders[i] = Normalize(h)
	}

	result := make(map[string]int, len(aliases))
	for canonical, variants := range aliases {
		candidates := append([]string{canonical}, variants...)
		for _, candidate := range candidates {
			normCandidate := Normalize(candidate)
			found := false
			for i, nh := range normalizedHeaders {
				if nh == normCandidate {
					result[canonical] = i
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	return result
}

// GetValue performs a defensive read: it tries the primary canonical key
// first, then each alias, returning the first present (non-missing) value.
// It does not distinguish "key absent" from "value is nil" — both read as
// no value found, matching how spreadsheet cells collapse blank to null.
func GetValue(rowMap map[string]any, primary string, aliases ...string) (any, bool) {
	if v, ok := rowMap[primary]; ok && v != nil {
		return v, true
	}
	for _, a := range aliases {
		if v, ok := rowMap[a]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
