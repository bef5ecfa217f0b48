// Package fuzzy filters upstream driver lists by approximate string
// similarity.
package fuzzy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"f1agent/internal/ergast"
)

// DefaultThreshold is the minimum similarity counted as a match.
const DefaultThreshold = 0.7

// SearchFields are the driver fields the free-text search term is compared
// against.
var SearchFields = []string{"givenName", "familyName", "code"}

var levenshtein = &metrics.Levenshtein{CaseSensitive: false, InsertCost: 1, DeleteCost: 1, ReplaceCost: 1}

// Ratio returns the case-insensitive Levenshtein similarity of a and b in
// [0, 1].
func Ratio(a, b string) float64 {
	if strings.EqualFold(a, b) {
		return 1
	}
	return strutil.Similarity(a, b, levenshtein)
}

// Match reports whether a and b are at least threshold similar.
func Match(a, b string, threshold float64) bool {
	return Ratio(a, b) >= threshold
}

// Options control FilterDrivers.
type Options struct {
	// Search must approximately match one of SearchFields.
	Search string
	// Fields maps a driver JSON field name to a value it must approximately
	// match. Drivers lacking the field are dropped.
	Fields    map[string]string
	Threshold float64
	// SortBy names the JSON field to order by. Missing values sort as "".
	SortBy string
	Desc   bool
	Offset int
	Limit  int
}

// FilterDrivers applies field filters, then the search term, then sorting
// and the offset/limit window. The input slice is not modified.
func FilterDrivers(drivers []ergast.Driver, opts Options) []ergast.Driver {
	out := make([]ergast.Driver, 0, len(drivers))
	for _, d := range drivers {
		if matchesFields(d, opts.Fields, opts.Threshold) && matchesSearch(d, opts.Search, opts.Threshold) {
			out = append(out, d)
		}
	}

	if opts.SortBy != "" {
		slices.SortStableFunc(out, func(a, b ergast.Driver) int {
			av, _ := a.Field(opts.SortBy)
			bv, _ := b.Field(opts.SortBy)
			if opts.Desc {
				return cmp.Compare(bv, av)
			}
			return cmp.Compare(av, bv)
		})
	}

	if opts.Offset >= len(out) {
		return []ergast.Driver{}
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

func matchesFields(d ergast.Driver, fields map[string]string, threshold float64) bool {
	for name, want := range fields {
		got, ok := d.Field(name)
		if !ok || !Match(got, want, threshold) {
			return false
		}
	}
	return true
}

func matchesSearch(d ergast.Driver, search string, threshold float64) bool {
	if search == "" {
		return true
	}
	for _, name := range SearchFields {
		v, _ := d.Field(name)
		if Match(v, search, threshold) {
			return true
		}
	}
	return false
}
