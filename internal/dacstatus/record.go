// Package dacstatus implements the dataset status classification engine for
// the glider DAC dashboard: it takes raw dataset status records, derives
// status categories and freshness tiers, builds the filter menu indexes, and
// produces display-ready view rows.
package dacstatus

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"
)

// FlexTime is a timestamp that tolerates the formats the status backend has
// been observed to emit: RFC 3339, date-time without zone, epoch seconds
// (number or string), and null. An unparseable value decodes as invalid
// rather than failing the record.
type FlexTime struct {
	t     time.Time
	valid bool
}

// NewFlexTime returns a valid FlexTime for t.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{t: t.UTC(), valid: true}
}

func (f FlexTime) Valid() bool { return f.valid }

func (f FlexTime) Time() time.Time { return f.t }

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.t.UTC().Format(time.RFC3339))
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*f = FlexTime{}
		return nil
	}

	if raw[0] != '"' {
		// Epoch seconds, possibly with a fractional part or millisecond scale.
		if sec, err := strconv.ParseFloat(raw, 64); err == nil {
			*f = fromEpoch(sec)
			return nil
		}
		*f = FlexTime{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = FlexTime{}
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = FlexTime{}
		return nil
	}

	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		*f = fromEpoch(sec)
		return nil
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			*f = FlexTime{t: t.UTC(), valid: true}
			return nil
		}
	}

	*f = FlexTime{}
	return nil
}

func fromEpoch(sec float64) FlexTime {
	// Values past the year 5000 in seconds are assumed to be milliseconds.
	if sec > 1e11 {
		sec = sec / 1000.0
	}
	if sec <= 0 {
		return FlexTime{}
	}
	return FlexTime{t: time.Unix(int64(sec), 0).UTC(), valid: true}
}

// DatasetRecord is one glider deployment dataset as reported by the status
// backend. Institution, operator, provider and WMO ID may be empty when the
// deployment metadata is incomplete.
type DatasetRecord struct {
	DatasetID          string   `json:"datasetId"`
	Institution        string   `json:"institution"`
	Operator           string   `json:"operator"`
	Provider           string   `json:"provider"`
	WMOID              string   `json:"wmoId"`
	DeploymentComplete bool     `json:"deploymentComplete"`
	CreatedAt          FlexTime `json:"createdAt"`
	TimeCoverageStart  FlexTime `json:"timeCoverageStart"`
	TimeCoverageEnd    FlexTime `json:"timeCoverageEnd"`
	ERDDAPReachable    bool     `json:"erddapReachable"`
	THREDDSReachable   bool     `json:"threddsReachable"`
	Archiving          bool     `json:"archiving"`
}

// DecodeRecords decodes a status snapshot from r. The payload may be a bare
// array of records or an object wrapping the array under "results",
// "datasets" or "data". Records that cannot be decoded or that lack a dataset
// ID are dropped and counted; a bad record never aborts the batch.
func DecodeRecords(r io.Reader) ([]DatasetRecord, int, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}

	raw, err := extractRecordArray(blob)
	if err != nil {
		return nil, 0, err
	}

	out := make([]DatasetRecord, 0, len(raw))
	dropped := 0
	for _, item := range raw {
		var rec DatasetRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			dropped++
			continue
		}
		if strings.TrimSpace(rec.DatasetID) == "" {
			dropped++
			continue
		}
		rec.DatasetID = strings.TrimSpace(rec.DatasetID)
		rec.Institution = strings.TrimSpace(rec.Institution)
		rec.Operator = strings.TrimSpace(rec.Operator)
		rec.Provider = strings.TrimSpace(rec.Provider)
		rec.WMOID = strings.TrimSpace(rec.WMOID)
		out = append(out, rec)
	}
	return out, dropped, nil
}

func extractRecordArray(blob []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(blob))
	if strings.HasPrefix(trimmed, "[") {
		var raw []json.RawMessage
		if err := json.Unmarshal(blob, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(blob, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"results", "datasets", "data"} {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(inner, &raw); err != nil {
			continue
		}
		return raw, nil
	}
	// An object without a recognized collection key is an empty snapshot.
	return nil, nil
}
