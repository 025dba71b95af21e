package dacstatus

import "time"

// FreshnessTier buckets how recently a dataset received new profile data,
// measured from time coverage end.
type FreshnessTier string

const (
	FreshnessFresh   FreshnessTier = "fresh"
	FreshnessWarn    FreshnessTier = "warn"
	FreshnessStale   FreshnessTier = "stale"
	FreshnessUnknown FreshnessTier = "unknown"
)

// CreatedTier buckets dataset age measured from registration time.
type CreatedTier string

const (
	CreatedNew     CreatedTier = "new"
	CreatedRecent  CreatedTier = "recent"
	CreatedAging   CreatedTier = "aging"
	CreatedOld     CreatedTier = "old"
	CreatedAncient CreatedTier = "ancient"
	CreatedUnknown CreatedTier = "unknown"
)

// StatusCategory is the mutually exclusive archival status partition.
// Blacklisted takes precedence over completeness.
type StatusCategory string

const (
	StatusComplete    StatusCategory = "complete"
	StatusIncomplete  StatusCategory = "incomplete"
	StatusBlacklisted StatusCategory = "blacklisted"
)

const (
	freshAfter = 6 * time.Hour
	// Coverage between 12h and 24h old stays in the warn tier; the stale
	// cutoff is 24h.
	warnAfter     = 24 * time.Hour
	createdNew    = 12 * time.Hour
	createdRecent = 24 * time.Hour
	createdAging  = 36 * time.Hour
	createdOld    = 72 * time.Hour
)

// ClassifiedDataset is a DatasetRecord plus its derived status, recomputed
// from wall-clock time on every fetch cycle and never persisted.
type ClassifiedDataset struct {
	DatasetRecord
	Freshness      FreshnessTier  `json:"freshness"`
	Created        CreatedTier    `json:"created"`
	HasWarning     bool           `json:"hasWarning"`
	StatusCategory StatusCategory `json:"statusCategory"`
}

// Classify derives the status of one record at evaluation instant now.
// It is a pure function: the same record and clock always produce the same
// classification.
func Classify(rec DatasetRecord, now time.Time) ClassifiedDataset {
	out := ClassifiedDataset{
		DatasetRecord: rec,
		Freshness:     freshnessTier(rec.TimeCoverageEnd, now),
		Created:       createdTier(rec.CreatedAt, now),
		HasWarning:    !rec.ERDDAPReachable || !rec.THREDDSReachable,
	}

	switch {
	case !rec.Archiving:
		out.StatusCategory = StatusBlacklisted
	case !rec.DeploymentComplete:
		out.StatusCategory = StatusIncomplete
	default:
		out.StatusCategory = StatusComplete
	}

	return out
}

// ClassifyAll classifies every record in the snapshot against a single
// evaluation instant so the whole cycle shares one clock reading.
func ClassifyAll(records []DatasetRecord, now time.Time) []ClassifiedDataset {
	out := make([]ClassifiedDataset, 0, len(records))
	for _, rec := range records {
		out = append(out, Classify(rec, now))
	}
	return out
}

func freshnessTier(coverageEnd FlexTime, now time.Time) FreshnessTier {
	if !coverageEnd.Valid() {
		return FreshnessUnknown
	}
	elapsed := now.Sub(coverageEnd.Time())
	switch {
	case elapsed <= freshAfter:
		return FreshnessFresh
	case elapsed <= warnAfter:
		return FreshnessWarn
	default:
		return FreshnessStale
	}
}

func createdTier(createdAt FlexTime, now time.Time) CreatedTier {
	if !createdAt.Valid() {
		return CreatedUnknown
	}
	elapsed := now.Sub(createdAt.Time())
	switch {
	case elapsed <= createdNew:
		return CreatedNew
	case elapsed <= createdRecent:
		return CreatedRecent
	case elapsed <= createdAging:
		return CreatedAging
	case elapsed <= createdOld:
		return CreatedOld
	default:
		return CreatedAncient
	}
}
