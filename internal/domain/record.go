package domain

import "time"

// TypeCode is the outcome flag carried by the 2nd character of a line's first token.
type TypeCode string

const (
	Detected            TypeCode = "Y"
	Missed              TypeCode = "N"
	LateOrLowConfidence TypeCode = "L"
)

// String returns a readable name for log output.
func (t TypeCode) String() string {
	switch t {
	case Detected:
		return "detected"
	case Missed:
		return "missed"
	case LateOrLowConfidence:
		return "late_or_low_confidence"
	default:
		return "unknown"
	}
}

func parseTypeCode(b byte) (TypeCode, bool) {
	switch TypeCode(b) {
	case Detected, Missed, LateOrLowConfidence:
		return TypeCode(b), true
	default:
		return "", false
	}
}

// Hypocenter is an epicenter plus magnitude and focal depth.
type Hypocenter struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Magnitude float64 `json:"magnitude"`
	DepthKm   float64 `json:"depth_km"`
}

// Alert holds the EEW system's estimate for a detected event.
type Alert struct {
	Hypocenter
	ProcessingTimeS float64 `json:"processing_time_s"`

	// Revised processing time from the 13th token, nil when absent.
	SecondaryProcessingTimeS *float64 `json:"secondary_processing_time_s,omitempty"`
}

// EarthquakeRecord is one parsed line of an event file.
type EarthquakeRecord struct {
	Type       TypeCode   `json:"type"`
	RawType    string     `json:"raw_type"`
	ID         string     `json:"id"`
	OriginTime string     `json:"origin_time"`
	Catalog    Hypocenter `json:"catalog"`
	Alert      *Alert     `json:"alert,omitempty"`
}

// AnalyzedRecord is an EarthquakeRecord with derived error metrics and its
// inland classification. Nil fields are unknown.
type AnalyzedRecord struct {
	EarthquakeRecord

	EpicenterErrorKm *float64 `json:"epicenter_error_km,omitempty"`
	MagnitudeError   *float64 `json:"magnitude_error,omitempty"`
	DepthErrorKm     *float64 `json:"depth_error_km,omitempty"`
	IsInland         *bool    `json:"is_inland,omitempty"`
}

// HasAlert reports whether the record is a detection with alert parameters.
func (r EarthquakeRecord) HasAlert() bool {
	return r.Type == Detected && r.Alert != nil
}

// AnalysisResult is everything one analysis run produces for downstream
// publishers: the enriched records and their summary.
type AnalysisResult struct {
	RunID          string           `json:"run_id"`
	Source         string           `json:"source"`
	Records        []AnalyzedRecord `json:"records"`
	Summary        Summary          `json:"summary"`
	MalformedLines int              `json:"malformed_lines"`
	Duration       time.Duration    `json:"duration_ns"`
}

func float64Ptr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }
