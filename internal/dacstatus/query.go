package dacstatus

import (
	"fmt"
	"sort"
	"strings"
)

// FilterField names a record field usable for exact-match filtering.
type FilterField string

const (
	FieldInstitution FilterField = "institution"
	FieldOperator    FilterField = "operator"
	FieldProvider    FilterField = "provider"
	FieldWMOID       FilterField = "wmo_id"
)

// LatestBy selects what "latest" orders on; the original dashboard never
// pinned this down, so it is a configuration choice.
type LatestBy string

const (
	LatestByCoverageEnd LatestBy = "coverage_end"
	LatestByCreated     LatestBy = "created"
)

// SelectorKind enumerates the built-in dashboard views.
type SelectorKind string

const (
	SelectAll         SelectorKind = "all"
	SelectByField     SelectorKind = "by_field"
	SelectIncomplete  SelectorKind = "incomplete"
	SelectLatest      SelectorKind = "latest"
	SelectBlacklisted SelectorKind = "blacklisted"
	SelectWarnings    SelectorKind = "warnings"
)

// Selector describes one dashboard view or per-value filter.
type Selector struct {
	Kind     SelectorKind
	Field    FilterField
	Value    string
	Limit    int
	LatestBy LatestBy
}

func All() Selector { return Selector{Kind: SelectAll} }

func ByField(field FilterField, value string) Selector {
	return Selector{Kind: SelectByField, Field: field, Value: value}
}

func Incomplete() Selector { return Selector{Kind: SelectIncomplete} }

func Latest(n int, by LatestBy) Selector {
	return Selector{Kind: SelectLatest, Limit: n, LatestBy: by}
}

func Blacklisted() Selector { return Selector{Kind: SelectBlacklisted} }

func Warnings() Selector { return Selector{Kind: SelectWarnings} }

// ParseView maps a navigation view name onto a selector.
func ParseView(view string, latestLimit int, latestBy LatestBy) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "", "all":
		return All(), nil
	case "incomplete", "status":
		return Incomplete(), nil
	case "latest":
		return Latest(latestLimit, latestBy), nil
	case "blacklisted", "not_archiving":
		return Blacklisted(), nil
	case "warnings":
		return Warnings(), nil
	default:
		return Selector{}, fmt.Errorf("unknown view: %s", view)
	}
}

// Query returns the subset of classified datasets matched by sel. The input
// slice is never mutated; fetch order is preserved for every selector except
// Latest, which defines its own order. An empty result is a valid outcome.
func Query(classified []ClassifiedDataset, sel Selector) []ClassifiedDataset {
	switch sel.Kind {
	case SelectAll:
		out := make([]ClassifiedDataset, len(classified))
		copy(out, classified)
		return out
	case SelectByField:
		return filter(classified, func(d ClassifiedDataset) bool {
			return fieldValue(d, sel.Field) == sel.Value
		})
	case SelectIncomplete:
		return filter(classified, func(d ClassifiedDataset) bool {
			return d.StatusCategory == StatusIncomplete
		})
	case SelectBlacklisted:
		return filter(classified, func(d ClassifiedDataset) bool {
			return d.StatusCategory == StatusBlacklisted
		})
	case SelectWarnings:
		return filter(classified, func(d ClassifiedDataset) bool {
			return d.HasWarning
		})
	case SelectLatest:
		return latest(classified, sel.Limit, sel.LatestBy)
	default:
		return []ClassifiedDataset{}
	}
}

func filter(classified []ClassifiedDataset, keep func(ClassifiedDataset) bool) []ClassifiedDataset {
	out := make([]ClassifiedDataset, 0, len(classified))
	for _, d := range classified {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func fieldValue(d ClassifiedDataset, field FilterField) string {
	switch field {
	case FieldInstitution:
		return d.Institution
	case FieldOperator:
		return d.Operator
	case FieldProvider:
		return d.Provider
	case FieldWMOID:
		return d.WMOID
	default:
		return ""
	}
}

func latest(classified []ClassifiedDataset, limit int, by LatestBy) []ClassifiedDataset {
	if limit <= 0 {
		limit = 20
	}

	out := make([]ClassifiedDataset, len(classified))
	copy(out, classified)

	key := func(d ClassifiedDataset) FlexTime {
		if by == LatestByCreated {
			return d.CreatedAt
		}
		return d.TimeCoverageEnd
	}

	// Records without a usable timestamp sort after all dated ones; ties
	// break on dataset ID ascending for a deterministic order.
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := key(out[i]), key(out[j])
		switch {
		case ti.Valid() && !tj.Valid():
			return true
		case !ti.Valid() && tj.Valid():
			return false
		case ti.Valid() && tj.Valid() && !ti.Time().Equal(tj.Time()):
			return ti.Time().After(tj.Time())
		default:
			return out[i].DatasetID < out[j].DatasetID
		}
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
