package domain

import "math"

// ComputeErrors derives the epicenter, magnitude, and depth errors of a
// detected record. Records without alert parameters get nil errors.
func ComputeErrors(rec EarthquakeRecord) AnalyzedRecord {
	out := AnalyzedRecord{EarthquakeRecord: rec}
	if !rec.HasAlert() {
		return out
	}

	cat, alert := rec.Catalog, rec.Alert.Hypocenter
	out.EpicenterErrorKm = float64Ptr(DistanceKm(cat.Lat, cat.Lon, alert.Lat, alert.Lon))
	out.MagnitudeError = float64Ptr(math.Abs(cat.Magnitude - alert.Magnitude))
	out.DepthErrorKm = float64Ptr(math.Abs(cat.DepthKm - alert.DepthKm))
	return out
}

// Classify tags a record with the classifier's verdict for its catalog
// epicenter. A nil classifier, or one without a boundary, leaves IsInland nil.
func Classify(rec AnalyzedRecord, classifier BoundaryClassifier) AnalyzedRecord {
	if classifier == nil {
		return rec
	}
	inland, known := classifier.Classify(rec.Catalog.Lon, rec.Catalog.Lat)
	if known {
		rec.IsInland = boolPtr(inland)
	}
	return rec
}

// AnalyzeRecords computes errors and inland classification for every record.
// The input slice is not modified.
func AnalyzeRecords(records []EarthquakeRecord, classifier BoundaryClassifier) []AnalyzedRecord {
	out := make([]AnalyzedRecord, len(records))
	for i, rec := range records {
		out[i] = Classify(ComputeErrors(rec), classifier)
	}
	return out
}

// DetectedRecords returns the records that carry alert parameters.
func DetectedRecords(records []AnalyzedRecord) []AnalyzedRecord {
	var out []AnalyzedRecord
	for _, r := range records {
		if r.HasAlert() {
			out = append(out, r)
		}
	}
	return out
}

// UndetectedRecords returns missed and late/low-confidence records.
func UndetectedRecords(records []AnalyzedRecord) []AnalyzedRecord {
	var out []AnalyzedRecord
	for _, r := range records {
		if r.Type == Missed || r.Type == LateOrLowConfidence {
			out = append(out, r)
		}
	}
	return out
}
