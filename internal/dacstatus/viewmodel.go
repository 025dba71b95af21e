package dacstatus

import (
	"time"

	"github.com/dustin/go-humanize"
)

// ViewRow carries only the primitive display-ready fields the rendering layer
// needs. The renderer must not re-derive classification from these fields.
type ViewRow struct {
	DatasetID       string `json:"dataset_id" csv:"dataset_id"`
	Institution     string `json:"institution" csv:"institution"`
	Operator        string `json:"operator" csv:"operator"`
	Provider        string `json:"provider" csv:"provider"`
	WMOID           string `json:"wmo_id" csv:"wmo_id"`
	Status          string `json:"status" csv:"status"`
	CompleteIcon    bool   `json:"complete_icon" csv:"complete"`
	FreshnessClass  string `json:"freshness_class" csv:"freshness"`
	CreatedClass    string `json:"created_class" csv:"created"`
	Warning         bool   `json:"warning" csv:"warning"`
	CreatedAt       string `json:"created_at" csv:"created_at"`
	CreatedAge      string `json:"created_age" csv:"-"`
	TimeCoverageEnd string `json:"time_coverage_end" csv:"time_coverage_end"`
	CoverageAge     string `json:"coverage_age" csv:"-"`
}

// Assemble converts classified datasets into view rows evaluated at now.
// Age strings use a humanized relative form for the dashboard tables.
func Assemble(classified []ClassifiedDataset, now time.Time) []ViewRow {
	out := make([]ViewRow, 0, len(classified))
	for _, d := range classified {
		row := ViewRow{
			DatasetID:      d.DatasetID,
			Institution:    d.Institution,
			Operator:       d.Operator,
			Provider:       d.Provider,
			WMOID:          d.WMOID,
			Status:         string(d.StatusCategory),
			CompleteIcon:   d.StatusCategory == StatusComplete,
			FreshnessClass: "tier-" + string(d.Freshness),
			CreatedClass:   "age-" + string(d.Created),
			Warning:        d.HasWarning,
		}
		if d.CreatedAt.Valid() {
			row.CreatedAt = d.CreatedAt.Time().Format(time.RFC3339)
			row.CreatedAge = humanize.RelTime(d.CreatedAt.Time(), now, "ago", "from now")
		}
		if d.TimeCoverageEnd.Valid() {
			row.TimeCoverageEnd = d.TimeCoverageEnd.Time().Format(time.RFC3339)
			row.CoverageAge = humanize.RelTime(d.TimeCoverageEnd.Time(), now, "ago", "from now")
		}
		out = append(out, row)
	}
	return out
}
