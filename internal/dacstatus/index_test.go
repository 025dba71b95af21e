package dacstatus

import (
	"reflect"
	"testing"
)

func TestBuildIndexDedupesAndSorts(t *testing.T) {
	records := []DatasetRecord{
		{DatasetID: "a", Institution: "Rutgers", Operator: "RU COOL", WMOID: "4801234"},
		{DatasetID: "b", Institution: "MARACOOS", Operator: "RU COOL", WMOID: "4801235"},
		{DatasetID: "c", Institution: "Rutgers", Operator: "caricoos", WMOID: "4801234"},
		{DatasetID: "d", Institution: "aoml", Provider: "IOOS"},
	}

	idx := BuildIndex(records)

	if got, want := idx.Institutions, []string{"aoml", "MARACOOS", "Rutgers"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected institutions %v, got %v", want, got)
	}
	if got, want := idx.Operators, []string{"caricoos", "RU COOL"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected operators %v, got %v", want, got)
	}
	if got, want := idx.Providers, []string{"IOOS"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected providers %v, got %v", want, got)
	}
	if got, want := idx.WMOIDs, []string{"4801234", "4801235"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected wmo ids %v, got %v", want, got)
	}
}

func TestBuildIndexSkipsEmptyValues(t *testing.T) {
	records := []DatasetRecord{
		{DatasetID: "a", Institution: "", Operator: "   ", WMOID: ""},
		{DatasetID: "b", Institution: "Rutgers"},
	}

	idx := BuildIndex(records)

	if len(idx.Institutions) != 1 || idx.Institutions[0] != "Rutgers" {
		t.Fatalf("expected only Rutgers, got %v", idx.Institutions)
	}
	if len(idx.Operators) != 0 || len(idx.WMOIDs) != 0 || len(idx.Providers) != 0 {
		t.Fatalf("expected empty value sets, got %+v", idx)
	}
}

func TestBuildIndexEmptySnapshot(t *testing.T) {
	idx := BuildIndex(nil)
	if len(idx.Institutions) != 0 || len(idx.Operators) != 0 || len(idx.Providers) != 0 || len(idx.WMOIDs) != 0 {
		t.Fatalf("expected four empty sets, got %+v", idx)
	}
}

func TestBuildIndexIsDeterministic(t *testing.T) {
	records := []DatasetRecord{
		{DatasetID: "a", Institution: "Beta"},
		{DatasetID: "b", Institution: "alpha"},
		{DatasetID: "c", Institution: "Gamma"},
		{DatasetID: "d", Institution: "Beta"},
	}

	first := BuildIndex(records)
	for i := 0; i < 10; i++ {
		if got := BuildIndex(records); !reflect.DeepEqual(got, first) {
			t.Fatalf("index order changed between runs: %v vs %v", got, first)
		}
	}
}
