package domain

import (
	"fmt"
	"math"
	"time"
)

// minSecondaryProcessingTimeS filters placeholder secondary times; the
// upstream files write 0 or 0.0x when no revised alert exists.
const minSecondaryProcessingTimeS = 0.1

// ErrorStats summarizes detected records of one subset.
type ErrorStats struct {
	Count                    int   `json:"count"`
	EpicenterErrorKm         Stats `json:"epicenter_error_km"`
	MagnitudeError           Stats `json:"magnitude_error"`
	DepthErrorKm             Stats `json:"depth_error_km"`
	ProcessingTimeS          Stats `json:"processing_time_s"`
	SecondaryProcessingTimeS Stats `json:"secondary_processing_time_s"`
}

// TimeBucket is a half-open processing-time interval (Lower, Upper].
// A nil Lower or Upper is unbounded.
type TimeBucket struct {
	Label string   `json:"label"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Contains reports whether t falls in the bucket.
func (b TimeBucket) Contains(t float64) bool {
	if b.Lower != nil && t <= *b.Lower {
		return false
	}
	if b.Upper != nil && t > *b.Upper {
		return false
	}
	return true
}

// ProcessingTimeBuckets are the published map classes:
// <=10, (10,15], (15,20], (20,25], (25,30], >30 seconds.
var ProcessingTimeBuckets = buildBuckets([]float64{10, 15, 20, 25, 30})

func buildBuckets(edges []float64) []TimeBucket {
	buckets := make([]TimeBucket, 0, len(edges)+1)
	var lower *float64
	for _, e := range edges {
		upper := float64Ptr(e)
		label := fmt.Sprintf("<=%g", e)
		if lower != nil {
			label = fmt.Sprintf("(%g,%g]", *lower, e)
		}
		buckets = append(buckets, TimeBucket{Label: label, Lower: lower, Upper: upper})
		lower = upper
	}
	return append(buckets, TimeBucket{Label: fmt.Sprintf(">%g", *lower), Lower: lower})
}

// BucketFor returns the processing-time bucket label for t.
func BucketFor(t float64) string {
	for _, b := range ProcessingTimeBuckets {
		if b.Contains(t) {
			return b.Label
		}
	}
	return ""
}

// BucketStats is ErrorStats restricted to one processing-time bucket.
type BucketStats struct {
	TimeBucket
	Stats ErrorStats `json:"stats"`
}

// Summary is the aggregate view of one analysis. It is built fresh by
// Aggregate and never modified afterwards.
type Summary struct {
	TotalEvents         int `json:"total_events"`
	Detected            int `json:"detected"`
	Missed              int `json:"missed"`
	LateOrLowConfidence int `json:"late_or_low_confidence"`

	// DetectionRate is Detected/TotalEvents in percent; nil when there are no events.
	DetectionRate *float64 `json:"detection_rate,omitempty"`

	Overall ErrorStats `json:"overall"`

	// Inland and Offshore are nil when no record was classified.
	Inland   *ErrorStats `json:"inland,omitempty"`
	Offshore *ErrorStats `json:"offshore,omitempty"`

	ProcessingTimeBuckets []BucketStats `json:"processing_time_buckets"`

	// UndetectedMagnitude describes catalog magnitudes of missed and
	// late/low-confidence events.
	UndetectedMagnitude Stats `json:"undetected_magnitude"`

	GeneratedAt time.Time `json:"generated_at"`
}

// HasData reports whether the summary covers at least one event.
func (s Summary) HasData() bool { return s.DetectionRate != nil }

// Aggregate reduces analyzed records to a Summary stamped with generatedAt.
// Nil values are excluded from every statistic rather than counted as zero.
func Aggregate(records []AnalyzedRecord, generatedAt time.Time) Summary {
	s := Summary{TotalEvents: len(records), GeneratedAt: generatedAt}

	var detected, inland, offshore []AnalyzedRecord
	var undetectedMags []float64
	classified := false

	for _, r := range records {
		switch r.Type {
		case Detected:
			s.Detected++
		case Missed:
			s.Missed++
			undetectedMags = append(undetectedMags, r.Catalog.Magnitude)
		case LateOrLowConfidence:
			s.LateOrLowConfidence++
			undetectedMags = append(undetectedMags, r.Catalog.Magnitude)
		}
		if r.IsInland != nil {
			classified = true
		}
		if !r.HasAlert() {
			continue
		}
		detected = append(detected, r)
		if r.IsInland != nil {
			if *r.IsInland {
				inland = append(inland, r)
			} else {
				offshore = append(offshore, r)
			}
		}
	}

	if s.TotalEvents > 0 {
		s.DetectionRate = float64Ptr(float64(s.Detected) / float64(s.TotalEvents) * 100)
	}

	s.Overall = describeErrors(detected)
	if classified {
		in, off := describeErrors(inland), describeErrors(offshore)
		s.Inland, s.Offshore = &in, &off
	}
	s.ProcessingTimeBuckets = describeBuckets(detected)
	s.UndetectedMagnitude = Describe(undetectedMags)
	return s
}

func describeErrors(records []AnalyzedRecord) ErrorStats {
	var epi, mag, depth, proc, secondary []float64
	for _, r := range records {
		if r.EpicenterErrorKm != nil {
			epi = append(epi, *r.EpicenterErrorKm)
		}
		if r.MagnitudeError != nil {
			mag = append(mag, *r.MagnitudeError)
		}
		if r.DepthErrorKm != nil {
			depth = append(depth, *r.DepthErrorKm)
		}
		if r.Alert == nil {
			continue
		}
		proc = append(proc, r.Alert.ProcessingTimeS)
		if t := r.Alert.SecondaryProcessingTimeS; t != nil && *t >= minSecondaryProcessingTimeS {
			secondary = append(secondary, *t)
		}
	}
	return ErrorStats{
		Count:                    len(records),
		EpicenterErrorKm:         Describe(epi),
		MagnitudeError:           Describe(mag),
		DepthErrorKm:             Describe(depth),
		ProcessingTimeS:          Describe(proc),
		SecondaryProcessingTimeS: Describe(secondary),
	}
}

func describeBuckets(detected []AnalyzedRecord) []BucketStats {
	out := make([]BucketStats, len(ProcessingTimeBuckets))
	for i, b := range ProcessingTimeBuckets {
		var in []AnalyzedRecord
		for _, r := range detected {
			if b.Contains(r.Alert.ProcessingTimeS) {
				in = append(in, r)
			}
		}
		out[i] = BucketStats{TimeBucket: b, Stats: describeErrors(in)}
	}
	return out
}

// Comparison holds differences (a minus b) between two summaries. A field is
// nil when either side has no data for it.
type Comparison struct {
	DetectionRateDiff        *float64 `json:"detection_rate_diff,omitempty"`
	EpicenterErrorMeanDiffKm *float64 `json:"epicenter_error_mean_diff_km,omitempty"`
	ProcessingTimeMeanDiffS  *float64 `json:"processing_time_mean_diff_s,omitempty"`
}

// Compare contrasts two summaries, typically two regions of the same file.
func Compare(a, b Summary) Comparison {
	var c Comparison
	if a.DetectionRate != nil && b.DetectionRate != nil {
		c.DetectionRateDiff = float64Ptr(*a.DetectionRate - *b.DetectionRate)
	}
	c.EpicenterErrorMeanDiffKm = meanDiff(a.Overall.EpicenterErrorKm, b.Overall.EpicenterErrorKm)
	c.ProcessingTimeMeanDiffS = meanDiff(a.Overall.ProcessingTimeS, b.Overall.ProcessingTimeS)
	return c
}

func meanDiff(a, b Stats) *float64 {
	if !a.HasData() || !b.HasData() {
		return nil
	}
	d := a.Mean - b.Mean
	if math.IsNaN(d) {
		return nil
	}
	return &d
}
