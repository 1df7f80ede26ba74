package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected Stats
	}{
		{"empty", nil, Stats{}},
		{"single", []float64{3}, Stats{Count: 1, Mean: 3, Median: 3, Min: 3, Max: 3, RMS: 3}},
		{
			"even count",
			[]float64{4, 1, 3, 2},
			Stats{Count: 4, Mean: 2.5, StdDev: 1.118033988749895, Median: 2.5, Min: 1, Max: 4, RMS: 2.7386127875258306},
		},
		{
			"population deviation",
			[]float64{2, 4, 4, 4, 5, 5, 7, 9},
			Stats{Count: 8, Mean: 5, StdDev: 2, Median: 4.5, Min: 2, Max: 9, RMS: 5.385164807134504},
		},
		{"negative values", []float64{-1, 1}, Stats{Count: 2, Mean: 0, StdDev: 1, Median: 0, Min: -1, Max: 1, RMS: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.values)
			if diff := cmp.Diff(tt.expected, got, approx); diff != "" {
				t.Errorf("Describe mismatch (-want +got):\n%s", diff)
			}
			if got.HasData() {
				assert.GreaterOrEqual(t, got.RMS+1e-12, abs(got.Mean))
			}
		})
	}

	t.Run("input is not reordered", func(t *testing.T) {
		values := []float64{3, 1, 2}
		Describe(values)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestProcessingTimeBuckets(t *testing.T) {
	labels := make([]string, len(ProcessingTimeBuckets))
	for i, b := range ProcessingTimeBuckets {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"<=10", "(10,15]", "(15,20]", "(20,25]", "(25,30]", ">30"}, labels)

	tests := []struct {
		t      float64
		bucket string
	}{
		{0, "<=10"},
		{10, "<=10"},
		{10.01, "(10,15]"},
		{15, "(10,15]"},
		{19.9, "(15,20]"},
		{25, "(20,25]"},
		{30, "(25,30]"},
		{30.5, ">30"},
		{120, ">30"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bucket, BucketFor(tt.t), "t=%v", tt.t)
	}
}

func scenarioRecords(t *testing.T, classifier BoundaryClassifier) []AnalyzedRecord {
	t.Helper()
	return AnalyzeRecords([]EarthquakeRecord{
		mustParse(t, testDetectedLine),
		mustParse(t, testMissedLine),
		mustParse(t, testLateLine),
	}, classifier)
}

func TestAggregate(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	classifier := NewQuadrantClassifier(NewBoundary(squareRing), DefaultNearBoundaryKm)
	s := Aggregate(scenarioRecords(t, classifier), frozen)

	assert.Equal(t, frozen, s.GeneratedAt)
	assert.Equal(t, 3, s.TotalEvents)
	assert.Equal(t, 1, s.Detected)
	assert.Equal(t, 1, s.Missed)
	assert.Equal(t, 1, s.LateOrLowConfidence)
	require.NotNil(t, s.DetectionRate)
	assert.InDelta(t, 100.0/3, *s.DetectionRate, 1e-9)
	assert.True(t, s.HasData())

	assert.Equal(t, 1, s.Overall.Count)
	assert.InDelta(t, 11.6487, s.Overall.EpicenterErrorKm.Mean, 1e-3)
	assert.InDelta(t, 0.2, s.Overall.MagnitudeError.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.Overall.DepthErrorKm.Mean, 1e-9)
	assert.Equal(t, 8.0, s.Overall.ProcessingTimeS.Mean)
	assert.False(t, s.Overall.SecondaryProcessingTimeS.HasData())

	require.NotNil(t, s.Inland)
	require.NotNil(t, s.Offshore)
	assert.Equal(t, 1, s.Inland.Count)
	assert.Equal(t, 0, s.Offshore.Count)

	require.Len(t, s.ProcessingTimeBuckets, len(ProcessingTimeBuckets))
	assert.Equal(t, "<=10", s.ProcessingTimeBuckets[0].Label)
	assert.Equal(t, 1, s.ProcessingTimeBuckets[0].Stats.Count)
	for _, b := range s.ProcessingTimeBuckets[1:] {
		assert.Zero(t, b.Stats.Count, b.Label)
	}

	want := Stats{Count: 2, Mean: 5.45, StdDev: 0.35, Median: 5.45, Min: 5.1, Max: 5.8, RMS: 5.461226968365259}
	if diff := cmp.Diff(want, s.UndetectedMagnitude, approx); diff != "" {
		t.Errorf("UndetectedMagnitude mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_CountsNeverExceedInput(t *testing.T) {
	records := scenarioRecords(t, nil)
	s := Aggregate(records, time.Time{})

	assert.LessOrEqual(t, s.Detected+s.Missed+s.LateOrLowConfidence, s.TotalEvents)
	assert.LessOrEqual(t, s.Overall.Count, s.Detected)
	assert.LessOrEqual(t, s.Overall.EpicenterErrorKm.Count, s.Overall.Count)
}

func TestAggregate_NoClassification(t *testing.T) {
	s := Aggregate(scenarioRecords(t, NewQuadrantClassifier(Boundary{}, 0)), time.Time{})
	assert.Nil(t, s.Inland)
	assert.Nil(t, s.Offshore)
	assert.Equal(t, 1, s.Overall.Count)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, time.Time{})
	assert.Zero(t, s.TotalEvents)
	assert.Nil(t, s.DetectionRate)
	assert.False(t, s.HasData())
	assert.False(t, s.Overall.EpicenterErrorKm.HasData())
	assert.Len(t, s.ProcessingTimeBuckets, len(ProcessingTimeBuckets))
}

func TestAggregate_SecondaryProcessingTime(t *testing.T) {
	records := AnalyzeRecords([]EarthquakeRecord{
		mustParse(t, testDetectedLine+" 6.5"),
		mustParse(t, testDetectedLine+" 0.05"),
		mustParse(t, testDetectedLine+" 4.5"),
	}, nil)

	s := Aggregate(records, time.Time{})
	assert.Equal(t, 2, s.Overall.SecondaryProcessingTimeS.Count)
	assert.InDelta(t, 5.5, s.Overall.SecondaryProcessingTimeS.Mean, 1e-9)
}

func TestAggregate_AllMissed(t *testing.T) {
	records := AnalyzeRecords([]EarthquakeRecord{
		mustParse(t, testMissedLine),
		mustParse(t, testMissedLine),
	}, nil)

	s := Aggregate(records, time.Time{})
	require.NotNil(t, s.DetectionRate)
	assert.Zero(t, *s.DetectionRate)
	assert.Zero(t, s.Overall.Count)
	assert.Equal(t, 2, s.UndetectedMagnitude.Count)
}

func TestCompare(t *testing.T) {
	full := Aggregate(scenarioRecords(t, nil), time.Time{})
	empty := Aggregate(nil, time.Time{})

	t.Run("against itself", func(t *testing.T) {
		c := Compare(full, full)
		require.NotNil(t, c.DetectionRateDiff)
		require.NotNil(t, c.EpicenterErrorMeanDiffKm)
		require.NotNil(t, c.ProcessingTimeMeanDiffS)
		assert.Zero(t, *c.DetectionRateDiff)
		assert.Zero(t, *c.EpicenterErrorMeanDiffKm)
		assert.Zero(t, *c.ProcessingTimeMeanDiffS)
	})

	t.Run("missing side yields nil", func(t *testing.T) {
		c := Compare(full, empty)
		assert.Nil(t, c.DetectionRateDiff)
		assert.Nil(t, c.EpicenterErrorMeanDiffKm)
		assert.Nil(t, c.ProcessingTimeMeanDiffS)
	})

	t.Run("signed difference", func(t *testing.T) {
		onlyDetected := Aggregate(AnalyzeRecords([]EarthquakeRecord{mustParse(t, testDetectedLine)}, nil), time.Time{})
		c := Compare(onlyDetected, full)
		require.NotNil(t, c.DetectionRateDiff)
		assert.InDelta(t, 100-100.0/3, *c.DetectionRateDiff, 1e-9)
	})
}
