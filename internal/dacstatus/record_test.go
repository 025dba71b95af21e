package dacstatus

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFlexTimeUnmarshalFormats(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2025-06-15T10:30:00Z"`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"rfc3339 with offset", `"2025-06-15T12:30:00+02:00"`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"datetime without zone", `"2025-06-15T10:30:00"`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"datetime with space", `"2025-06-15 10:30:00"`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"date only", `"2025-06-15"`, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"epoch seconds number", `1749983400`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"epoch seconds string", `"1749983400"`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"epoch milliseconds", `1749983400000`, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f FlexTime
			if err := json.Unmarshal([]byte(tc.raw), &f); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if !f.Valid() {
				t.Fatalf("expected valid timestamp for %s", tc.raw)
			}
			if !f.Time().Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, f.Time())
			}
		})
	}
}

func TestFlexTimeUnmarshalInvalidIsNotAnError(t *testing.T) {
	for _, raw := range []string{`null`, `""`, `"not a date"`, `"31/12/2025"`, `-5`, `0`} {
		var f FlexTime
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("unmarshal of %s should not error, got %v", raw, err)
		}
		if f.Valid() {
			t.Fatalf("expected invalid timestamp for %s", raw)
		}
	}
}

func TestFlexTimeMarshal(t *testing.T) {
	valid := NewFlexTime(time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC))
	b, err := json.Marshal(valid)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `"2025-06-15T10:30:00Z"` {
		t.Fatalf("unexpected marshal output: %s", b)
	}

	b, err = json.Marshal(FlexTime{})
	if err != nil {
		t.Fatalf("marshal of invalid time failed: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("expected null for invalid time, got %s", b)
	}
}

func TestDecodeRecordsBareArray(t *testing.T) {
	payload := `[
		{"datasetId":"sp064-20250610T1200","institution":"MARACOOS","deploymentComplete":true,"archiving":true},
		{"datasetId":"ru29-20250601T0000","institution":"Rutgers","wmoId":"4801234"}
	]`

	records, dropped, err := DecodeRecords(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("expected no dropped records, got %d", dropped)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].DatasetID != "sp064-20250610T1200" || records[1].WMOID != "4801234" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestDecodeRecordsWrapperObject(t *testing.T) {
	for _, key := range []string{"results", "datasets", "data"} {
		payload := `{"` + key + `":[{"datasetId":"ds-1"}]}`
		records, _, err := DecodeRecords(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("decode of %q wrapper failed: %v", key, err)
		}
		if len(records) != 1 || records[0].DatasetID != "ds-1" {
			t.Fatalf("unexpected records for %q wrapper: %+v", key, records)
		}
	}
}

func TestDecodeRecordsDropsBadRecords(t *testing.T) {
	payload := `[
		{"datasetId":"good-1","createdAt":"2025-06-15T10:00:00Z"},
		{"datasetId":""},
		{"datasetId":"   "},
		{"datasetId":"good-2","createdAt":"garbage"},
		"not an object"
	]`

	records, dropped, err := DecodeRecords(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(records))
	}
	if dropped != 3 {
		t.Fatalf("expected 3 dropped records, got %d", dropped)
	}
	// A garbage timestamp degrades to invalid but keeps the record.
	if records[1].DatasetID != "good-2" || records[1].CreatedAt.Valid() {
		t.Fatalf("expected good-2 with invalid createdAt, got %+v", records[1])
	}
}

func TestDecodeRecordsTrimsWhitespace(t *testing.T) {
	payload := `[{"datasetId":"  ds-1  ","institution":" Rutgers ","operator":" RU "}]`

	records, _, err := DecodeRecords(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if records[0].DatasetID != "ds-1" || records[0].Institution != "Rutgers" || records[0].Operator != "RU" {
		t.Fatalf("expected trimmed fields, got %+v", records[0])
	}
}

func TestDecodeRecordsMalformedPayload(t *testing.T) {
	if _, _, err := DecodeRecords(strings.NewReader(`{"results": "nope"`)); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
}

func TestDecodeRecordsObjectWithoutCollectionKey(t *testing.T) {
	records, dropped, err := DecodeRecords(strings.NewReader(`{"message":"ok"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(records) != 0 || dropped != 0 {
		t.Fatalf("expected empty snapshot, got %d records %d dropped", len(records), dropped)
	}
}
