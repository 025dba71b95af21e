package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwengren/glider-dac-status/internal/config"
	"github.com/mwengren/glider-dac-status/internal/dacstatus"
	"github.com/mwengren/glider-dac-status/internal/poller"
)

func testConfig() config.Config {
	return config.Config{
		DefaultViewLimit: 500,
		LatestLimit:      20,
		LatestBy:         "coverage_end",
	}
}

func primedPoller(t *testing.T) *poller.Poller {
	t.Helper()

	now := time.Now().UTC()
	records := []dacstatus.DatasetRecord{
		{
			DatasetID:          "amelia-20250614T0600",
			Institution:        "Rutgers",
			Operator:           "RU COOL",
			WMOID:              "4801234",
			DeploymentComplete: true,
			Archiving:          true,
			ERDDAPReachable:    true,
			THREDDSReachable:   true,
			CreatedAt:          dacstatus.NewFlexTime(now.Add(-8 * time.Hour)),
			TimeCoverageEnd:    dacstatus.NewFlexTime(now.Add(-2 * time.Hour)),
		},
		{
			DatasetID:          "bass-20250610T0000",
			Institution:        "MARACOOS",
			DeploymentComplete: false,
			Archiving:          true,
			ERDDAPReachable:    false,
			THREDDSReachable:   true,
			CreatedAt:          dacstatus.NewFlexTime(now.Add(-90 * time.Hour)),
			TimeCoverageEnd:    dacstatus.NewFlexTime(now.Add(-30 * time.Hour)),
		},
		{
			DatasetID:          "clark-20250601T1200",
			Institution:        "Rutgers",
			DeploymentComplete: true,
			Archiving:          false,
			ERDDAPReachable:    true,
			THREDDSReachable:   true,
			CreatedAt:          dacstatus.NewFlexTime(now.Add(-300 * time.Hour)),
			TimeCoverageEnd:    dacstatus.NewFlexTime(now.Add(-200 * time.Hour)),
		},
	}

	p := poller.New(nil, time.Hour, nil, nil)
	p.Prime(dacstatus.NewSnapshot("status_api", records, 1, now))
	return p
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestDatasetsHandler_NoSnapshot(t *testing.T) {
	h := datasetsHandler(testConfig(), poller.New(nil, time.Hour, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	if payload := decodeEnvelope(t, rr); payload["error"] == nil {
		t.Fatalf("expected error field in response")
	}
}

func TestDatasetsHandler_AllView(t *testing.T) {
	h := datasetsHandler(testConfig(), primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	payload := decodeEnvelope(t, rr)
	data := payload["data"].([]any)
	if len(data) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(data))
	}
	meta := payload["meta"].(map[string]any)
	if meta["view"] != "all" || meta["total"] != float64(3) {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta["stale"] != nil {
		t.Fatalf("did not expect stale flag: %+v", meta)
	}

	first := data[0].(map[string]any)
	if first["dataset_id"] != "amelia-20250614T0600" || first["freshness_class"] != "tier-fresh" {
		t.Fatalf("unexpected first row: %+v", first)
	}
}

func TestDatasetsHandler_Views(t *testing.T) {
	h := datasetsHandler(testConfig(), primedPoller(t))

	cases := []struct {
		query  string
		wantID string
	}{
		{"view=incomplete", "bass-20250610T0000"},
		{"view=blacklisted", "clark-20250601T1200"},
		{"view=warnings", "bass-20250610T0000"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets?"+tc.query, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", tc.query, http.StatusOK, rr.Code)
		}
		data := decodeEnvelope(t, rr)["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("%s: expected 1 row, got %d", tc.query, len(data))
		}
		if row := data[0].(map[string]any); row["dataset_id"] != tc.wantID {
			t.Fatalf("%s: expected %s, got %v", tc.query, tc.wantID, row["dataset_id"])
		}
	}
}

func TestDatasetsHandler_FieldFilterBeatsView(t *testing.T) {
	h := datasetsHandler(testConfig(), primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets?view=warnings&institution=Rutgers", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	payload := decodeEnvelope(t, rr)
	meta := payload["meta"].(map[string]any)
	if meta["filter_field"] != "institution" || meta["filter_value"] != "Rutgers" {
		t.Fatalf("expected field filter meta, got %+v", meta)
	}
	if data := payload["data"].([]any); len(data) != 2 {
		t.Fatalf("expected 2 Rutgers rows, got %d", len(data))
	}
}

func TestDatasetsHandler_LatestView(t *testing.T) {
	h := datasetsHandler(testConfig(), primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets?view=latest&limit=2", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	data := decodeEnvelope(t, rr)["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(data))
	}
	first := data[0].(map[string]any)
	second := data[1].(map[string]any)
	if first["dataset_id"] != "amelia-20250614T0600" || second["dataset_id"] != "bass-20250610T0000" {
		t.Fatalf("unexpected latest order: %v, %v", first["dataset_id"], second["dataset_id"])
	}
}

func TestDatasetsHandler_UnknownView(t *testing.T) {
	h := datasetsHandler(testConfig(), primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets?view=bogus", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestDatasetDetailHandler(t *testing.T) {
	h := datasetDetailHandler(primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/bass-20250610T0000", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	data := decodeEnvelope(t, rr)["data"].(map[string]any)
	if data["datasetId"] != "bass-20250610T0000" || data["statusCategory"] != "incomplete" {
		t.Fatalf("unexpected detail payload: %+v", data)
	}
	if data["hasWarning"] != true {
		t.Fatalf("expected warning flag in detail payload")
	}
}

func TestDatasetDetailHandler_NotFound(t *testing.T) {
	h := datasetDetailHandler(primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/missing-ds", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestIndexHandler(t *testing.T) {
	h := indexHandler(primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/index", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	data := decodeEnvelope(t, rr)["data"].(map[string]any)
	institutions := data["institutions"].([]any)
	if len(institutions) != 2 || institutions[0] != "MARACOOS" || institutions[1] != "Rutgers" {
		t.Fatalf("unexpected institutions: %v", institutions)
	}
	if wmo := data["wmoIds"].([]any); len(wmo) != 1 || wmo[0] != "4801234" {
		t.Fatalf("unexpected wmo ids: %v", wmo)
	}
}

func TestSummaryHandler(t *testing.T) {
	h := summaryHandler(primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	data := decodeEnvelope(t, rr)["data"].(map[string]any)
	if data["dataset_count"] != float64(3) || data["dropped_records"] != float64(1) {
		t.Fatalf("unexpected summary: %+v", data)
	}
	if data["complete_count"] != float64(1) || data["incomplete_count"] != float64(1) || data["blacklisted_count"] != float64(1) {
		t.Fatalf("unexpected category counts: %+v", data)
	}
}

func TestHistoryHandler_Disabled(t *testing.T) {
	h := historyHandler(50, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestExportCSVHandler(t *testing.T) {
	h := exportCSVHandler(testConfig(), primedPoller(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/datasets.csv?view=blacklisted", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected CSV content type, got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "glider-dac-status.csv") {
		t.Fatalf("unexpected content disposition: %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "dataset_id,") {
		t.Fatalf("unexpected CSV header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "clark-20250601T1200") {
		t.Fatalf("expected blacklisted row, got %q", lines[1])
	}
}

func TestRefreshHandler_MethodNotAllowed(t *testing.T) {
	h := refreshHandler(poller.New(nil, time.Hour, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/refresh", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRefreshHandler_Accepted(t *testing.T) {
	h := refreshHandler(poller.New(nil, time.Hour, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rr.Code)
	}
}
