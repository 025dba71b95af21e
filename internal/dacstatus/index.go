package dacstatus

import (
	"sort"
	"strings"
)

// FilterIndex holds the distinct selectable values for the four navigation
// filter menus. Empty/unknown values are never selectable filter values, so
// they are excluded here; the datasets themselves stay visible under the
// all-datasets view.
type FilterIndex struct {
	Institutions []string `json:"institutions"`
	Operators    []string `json:"operators"`
	Providers    []string `json:"providers"`
	WMOIDs       []string `json:"wmoIds"`
}

// BuildIndex collects distinct non-empty field values across the full
// snapshot, deduplicated and sorted case-insensitively. It runs over the raw
// record collection, not a filtered subset, so the menus always reflect the
// whole dataset universe.
func BuildIndex(records []DatasetRecord) FilterIndex {
	institutions := map[string]struct{}{}
	operators := map[string]struct{}{}
	providers := map[string]struct{}{}
	wmoIDs := map[string]struct{}{}

	for _, rec := range records {
		collect(institutions, rec.Institution)
		collect(operators, rec.Operator)
		collect(providers, rec.Provider)
		collect(wmoIDs, rec.WMOID)
	}

	return FilterIndex{
		Institutions: sortedValues(institutions),
		Operators:    sortedValues(operators),
		Providers:    sortedValues(providers),
		WMOIDs:       sortedValues(wmoIDs),
	}
}

func collect(set map[string]struct{}, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	set[v] = struct{}{}
}

func sortedValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}
