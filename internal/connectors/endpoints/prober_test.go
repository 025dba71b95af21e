package endpoints

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const catalogPage = `<html><body>
<table>
<tr><td><a href="catalog.html?dataset=amelia-20250614T0600">amelia-20250614T0600</a></td></tr>
<tr><td><a href="catalog.html?dataset=bass-20250610T0000">bass-20250610T0000</a></td></tr>
</table>
</body></html>`

func TestProbeTargets(t *testing.T) {
	erddap := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer erddap.Close()
	thredds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(catalogPage))
	}))
	defer thredds.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	p := NewProber([]string{erddap.URL, broken.URL}, []string{thredds.URL}, 5*time.Second)
	results := p.ProbeTargets(context.Background())
	if len(results) != 3 {
		t.Fatalf("expected 3 probe results, got %d", len(results))
	}

	byTarget := map[string]TargetStatus{}
	for _, r := range results {
		byTarget[r.Target] = r
	}

	if r := byTarget[erddap.URL]; !r.OK || r.Kind != "erddap" || r.HTTPStatus != http.StatusOK {
		t.Fatalf("unexpected erddap result: %+v", r)
	}
	if r := byTarget[thredds.URL]; !r.OK || r.Kind != "thredds" || r.CatalogLinks != 2 {
		t.Fatalf("unexpected thredds result: %+v", r)
	}
	if r := byTarget[broken.URL]; r.OK || r.Error == "" {
		t.Fatalf("expected failure for 500 target: %+v", r)
	}

	// Results are cached for Last.
	last := p.Last()
	if len(last) != 3 {
		t.Fatalf("expected cached results, got %d", len(last))
	}
}

func TestProbeTargetsUnreachableHost(t *testing.T) {
	p := NewProber([]string{"http://127.0.0.1:1"}, nil, 500*time.Millisecond)

	results := p.ProbeTargets(context.Background())
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].OK || results[0].Error == "" {
		t.Fatalf("expected connection error, got %+v", results[0])
	}
}

func TestProberDisabledWithoutTargets(t *testing.T) {
	p := NewProber(nil, []string{"  ", ""}, time.Second)
	if p.Enabled() {
		t.Fatalf("expected prober without targets to be disabled")
	}
	if got := p.ProbeTargets(context.Background()); got != nil {
		t.Fatalf("expected nil results from disabled prober, got %v", got)
	}
}

func TestVerifyDatasetInCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(catalogPage))
	}))
	defer srv.Close()

	p := NewProber(nil, []string{srv.URL}, 5*time.Second)

	found, err := p.VerifyDatasetInCatalog(context.Background(), srv.URL, "amelia-20250614T0600")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !found {
		t.Fatalf("expected dataset to be found in catalog")
	}

	found, err = p.VerifyDatasetInCatalog(context.Background(), srv.URL, "nonexistent-ds")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if found {
		t.Fatalf("did not expect missing dataset to be found")
	}
}
