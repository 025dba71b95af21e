package dacstatus

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one immutable fetch cycle: the raw records plus everything
// derived from them. A new snapshot is built per cycle and the previous one
// is discarded wholesale; nothing here is updated in place.
type Snapshot struct {
	CycleID        string              `json:"cycle_id"`
	Source         string              `json:"source"`
	FetchedAt      time.Time           `json:"fetched_at"`
	Records        []DatasetRecord     `json:"records"`
	Classified     []ClassifiedDataset `json:"classified"`
	Index          FilterIndex         `json:"index"`
	DroppedRecords int                 `json:"dropped_records"`
}

// NewSnapshot classifies and indexes a freshly fetched record collection.
func NewSnapshot(source string, records []DatasetRecord, dropped int, now time.Time) *Snapshot {
	return &Snapshot{
		CycleID:        uuid.NewString(),
		Source:         source,
		FetchedAt:      now.UTC(),
		Records:        records,
		Classified:     ClassifyAll(records, now),
		Index:          BuildIndex(records),
		DroppedRecords: dropped,
	}
}

// Summary aggregates the snapshot into the counters shown on the dashboard
// overview cards and persisted as cycle history.
type Summary struct {
	CycleID          string    `json:"cycle_id"`
	Source           string    `json:"source"`
	FetchedAt        time.Time `json:"fetched_at"`
	DatasetCount     int       `json:"dataset_count"`
	CompleteCount    int       `json:"complete_count"`
	IncompleteCount  int       `json:"incomplete_count"`
	BlacklistedCount int       `json:"blacklisted_count"`
	WarningCount     int       `json:"warning_count"`
	FreshCount       int       `json:"fresh_count"`
	WarnCount        int       `json:"warn_count"`
	StaleCount       int       `json:"stale_count"`
	UnknownCount     int       `json:"unknown_count"`
	DroppedRecords   int       `json:"dropped_records"`
}

// Summarize computes category and tier counters over the snapshot.
func (s *Snapshot) Summarize() Summary {
	out := Summary{
		CycleID:        s.CycleID,
		Source:         s.Source,
		FetchedAt:      s.FetchedAt,
		DatasetCount:   len(s.Classified),
		DroppedRecords: s.DroppedRecords,
	}
	for _, d := range s.Classified {
		switch d.StatusCategory {
		case StatusComplete:
			out.CompleteCount++
		case StatusIncomplete:
			out.IncompleteCount++
		case StatusBlacklisted:
			out.BlacklistedCount++
		}
		switch d.Freshness {
		case FreshnessFresh:
			out.FreshCount++
		case FreshnessWarn:
			out.WarnCount++
		case FreshnessStale:
			out.StaleCount++
		case FreshnessUnknown:
			out.UnknownCount++
		}
		if d.HasWarning {
			out.WarningCount++
		}
	}
	return out
}
