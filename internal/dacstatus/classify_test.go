package dacstatus

import (
	"testing"
	"time"
)

var clock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func recordAt(id string, coverageEnd, createdAt time.Duration) DatasetRecord {
	return DatasetRecord{
		DatasetID:          id,
		DeploymentComplete: true,
		CreatedAt:          NewFlexTime(clock.Add(-createdAt)),
		TimeCoverageEnd:    NewFlexTime(clock.Add(-coverageEnd)),
		ERDDAPReachable:    true,
		THREDDSReachable:   true,
		Archiving:          true,
	}
}

func TestClassifyFreshnessTiers(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    FreshnessTier
	}{
		{"one hour old is fresh", 1 * time.Hour, FreshnessFresh},
		{"exactly six hours is fresh", 6 * time.Hour, FreshnessFresh},
		{"just past six hours is warn", 6*time.Hour + time.Minute, FreshnessWarn},
		{"eighteen hours is warn", 18 * time.Hour, FreshnessWarn},
		{"exactly twenty four hours is warn", 24 * time.Hour, FreshnessWarn},
		{"just past twenty four hours is stale", 24*time.Hour + time.Minute, FreshnessStale},
		{"a week old is stale", 7 * 24 * time.Hour, FreshnessStale},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(recordAt("ds", tc.elapsed, time.Hour), clock)
			if got.Freshness != tc.want {
				t.Fatalf("expected tier %q, got %q", tc.want, got.Freshness)
			}
		})
	}
}

func TestClassifyFreshnessUnknownForInvalidTimestamp(t *testing.T) {
	rec := recordAt("ds", time.Hour, time.Hour)
	rec.TimeCoverageEnd = FlexTime{}

	got := Classify(rec, clock)
	if got.Freshness != FreshnessUnknown {
		t.Fatalf("expected unknown freshness, got %q", got.Freshness)
	}
}

func TestClassifyFutureCoverageIsFresh(t *testing.T) {
	got := Classify(recordAt("ds", -2*time.Hour, time.Hour), clock)
	if got.Freshness != FreshnessFresh {
		t.Fatalf("expected future coverage end to classify fresh, got %q", got.Freshness)
	}
}

func TestClassifyCreatedTiers(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    CreatedTier
	}{
		{"six hours is new", 6 * time.Hour, CreatedNew},
		{"exactly twelve hours is new", 12 * time.Hour, CreatedNew},
		{"eighteen hours is recent", 18 * time.Hour, CreatedRecent},
		{"thirty hours is aging", 30 * time.Hour, CreatedAging},
		{"sixty hours is old", 60 * time.Hour, CreatedOld},
		{"exactly seventy two hours is old", 72 * time.Hour, CreatedOld},
		{"four days is ancient", 4 * 24 * time.Hour, CreatedAncient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(recordAt("ds", time.Hour, tc.elapsed), clock)
			if got.Created != tc.want {
				t.Fatalf("expected tier %q, got %q", tc.want, got.Created)
			}
		})
	}
}

func TestClassifyCreatedUnknownForInvalidTimestamp(t *testing.T) {
	rec := recordAt("ds", time.Hour, time.Hour)
	rec.CreatedAt = FlexTime{}

	got := Classify(rec, clock)
	if got.Created != CreatedUnknown {
		t.Fatalf("expected unknown created tier, got %q", got.Created)
	}
}

func TestClassifyBlacklistPrecedence(t *testing.T) {
	// archiving=false wins even when the deployment looks complete.
	rec := recordAt("ds", time.Hour, time.Hour)
	rec.Archiving = false
	rec.DeploymentComplete = true

	got := Classify(rec, clock)
	if got.StatusCategory != StatusBlacklisted {
		t.Fatalf("expected blacklisted, got %q", got.StatusCategory)
	}
}

func TestClassifyStatusCategoryPartition(t *testing.T) {
	cases := []struct {
		name      string
		archiving bool
		complete  bool
		want      StatusCategory
	}{
		{"archiving and complete", true, true, StatusComplete},
		{"archiving and incomplete", true, false, StatusIncomplete},
		{"not archiving and complete", false, true, StatusBlacklisted},
		{"not archiving and incomplete", false, false, StatusBlacklisted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordAt("ds", time.Hour, time.Hour)
			rec.Archiving = tc.archiving
			rec.DeploymentComplete = tc.complete
			got := Classify(rec, clock)
			if got.StatusCategory != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.StatusCategory)
			}
		})
	}
}

func TestClassifyWarningFlag(t *testing.T) {
	cases := []struct {
		name    string
		erddap  bool
		thredds bool
		want    bool
	}{
		{"both reachable", true, true, false},
		{"erddap down", false, true, true},
		{"thredds down", true, false, true},
		{"both down", false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordAt("ds", time.Hour, time.Hour)
			rec.ERDDAPReachable = tc.erddap
			rec.THREDDSReachable = tc.thredds
			got := Classify(rec, clock)
			if got.HasWarning != tc.want {
				t.Fatalf("expected warning=%v, got %v", tc.want, got.HasWarning)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	rec := recordAt("ds", 3*time.Hour, 20*time.Hour)
	first := Classify(rec, clock)
	second := Classify(rec, clock)
	if first != second {
		t.Fatalf("same record and clock produced different classifications: %+v vs %+v", first, second)
	}
}

func TestClassifyAllUsesOneClock(t *testing.T) {
	records := []DatasetRecord{
		recordAt("a", time.Hour, time.Hour),
		recordAt("b", 10*time.Hour, 30*time.Hour),
		recordAt("c", 48*time.Hour, 100*time.Hour),
	}

	got := ClassifyAll(records, clock)
	if len(got) != 3 {
		t.Fatalf("expected 3 classified datasets, got %d", len(got))
	}
	if got[0].Freshness != FreshnessFresh || got[1].Freshness != FreshnessWarn || got[2].Freshness != FreshnessStale {
		t.Fatalf("unexpected freshness tiers: %q %q %q", got[0].Freshness, got[1].Freshness, got[2].Freshness)
	}
	if got[2].Created != CreatedAncient {
		t.Fatalf("expected ancient created tier, got %q", got[2].Created)
	}
}
