package statusapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchDatasetsWrapperPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected Accept header application/json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"datasetId":"amelia-20250614T0600","institution":"Rutgers","deploymentComplete":true,"archiving":true},
			{"datasetId":"","institution":"dropped"},
			{"datasetId":"bass-20250610T0000","createdAt":"2025-06-10 00:00:00"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	records, dropped, err := c.FetchDatasets(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped record, got %d", dropped)
	}
	if records[0].DatasetID != "amelia-20250614T0600" || !records[1].CreatedAt.Valid() {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestFetchDatasetsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"datasetId":"ds-1"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	records, _, err := c.FetchDatasets(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(records) != 1 || records[0].DatasetID != "ds-1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestFetchDatasetsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, _, err := c.FetchDatasets(context.Background())
	if err == nil {
		t.Fatalf("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "status=502") || !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("expected status and body in error, got: %v", err)
	}
}

func TestFetchDatasetsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"datasetId":`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, _, err := c.FetchDatasets(context.Background()); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}

func TestFetchDatasetsDisabledClient(t *testing.T) {
	c := NewClient("", 5*time.Second)
	if c.Enabled() {
		t.Fatalf("expected client with empty endpoint to be disabled")
	}
	if _, _, err := c.FetchDatasets(context.Background()); err == nil {
		t.Fatalf("expected error from disabled client")
	}
}

func TestServiceStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	stats, err := c.ServiceStats(context.Background())
	if err != nil {
		t.Fatalf("service stats failed: %v", err)
	}
	if stats.HTTPStatus != http.StatusOK || stats.Endpoint != srv.URL {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
