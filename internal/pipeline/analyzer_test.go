package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
	"github.com/couchcryptid/eews-analyzer/internal/observability"
)

const (
	sampleFile   = "testdata/EEW_sample.txt"
	boundaryFile = "testdata/taiwan_sample.txt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleClassifier(t *testing.T) domain.BoundaryClassifier {
	t.Helper()
	f, err := os.Open(boundaryFile)
	require.NoError(t, err)
	defer f.Close()

	b, err := domain.LoadBoundary(f)
	require.NoError(t, err)
	return domain.NewQuadrantClassifier(b, domain.DefaultNearBoundaryKm)
}

func newTestAnalyzer(t *testing.T) (*Analyzer, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	return NewAnalyzer(sampleClassifier(t), 4, discardLogger(), m), m
}

func TestAnalyzer_Analyze(t *testing.T) {
	a, m := newTestAnalyzer(t)

	res, err := a.Analyze(context.Background(), sampleFile, domain.Filter{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, sampleFile, res.Source)
	assert.Equal(t, 1, res.MalformedLines)
	require.Len(t, res.Records, 6)

	s := res.Summary
	assert.Equal(t, 6, s.TotalEvents)
	assert.Equal(t, 4, s.Detected)
	assert.Equal(t, 1, s.Missed)
	assert.Equal(t, 1, s.LateOrLowConfidence)
	require.NotNil(t, s.DetectionRate)
	assert.InDelta(t, 66.6667, *s.DetectionRate, 1e-3)

	assert.Equal(t, 4, s.Overall.Count)
	require.NotNil(t, s.Inland)
	require.NotNil(t, s.Offshore)
	assert.Equal(t, 3, s.Inland.Count)
	assert.Equal(t, 1, s.Offshore.Count)
	assert.Equal(t, 1, s.Overall.SecondaryProcessingTimeS.Count)

	counts := map[string]int{}
	for _, b := range s.ProcessingTimeBuckets {
		counts[b.Label] = b.Stats.Count
	}
	assert.Equal(t, map[string]int{
		"<=10": 1, "(10,15]": 1, "(15,20]": 1, "(20,25]": 0, "(25,30]": 0, ">30": 1,
	}, counts)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.RecordsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedLines))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Classification.WithLabelValues("inland")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Classification.WithLabelValues("offshore")))
}

func TestAnalyzer_Filter(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	minMag := 5.5
	res, err := a.Analyze(context.Background(), sampleFile, domain.Filter{MinMagnitude: &minMag})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.TotalEvents)
	assert.Equal(t, 2, res.Summary.Detected)
	assert.Equal(t, 1, res.Summary.LateOrLowConfidence)
	for _, r := range res.Records {
		assert.GreaterOrEqual(t, r.Catalog.Magnitude, minMag)
	}
}

func TestAnalyzer_CachesParsedFile(t *testing.T) {
	a, m := newTestAnalyzer(t)
	ctx := context.Background()

	first, err := a.Analyze(ctx, sampleFile, domain.Filter{})
	require.NoError(t, err)
	second, err := a.Analyze(ctx, sampleFile, domain.Filter{})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Summary.TotalEvents, second.Summary.TotalEvents)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisCache.WithLabelValues("hit")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.RecordsParsed), "cached file must not be parsed twice")
	assert.Equal(t, 1, a.cache.len())
}

func TestAnalyzer_RewrittenFileMissesCache(t *testing.T) {
	a, m := newTestAnalyzer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "EEW_rewrite.txt")
	header := "Type ID Origin_Time Cat_Lon Cat_Lat Cat_Mag Cat_Dep\n"
	require.NoError(t, os.WriteFile(path, []byte(header+"eN 1 2024-01-01T00:00:00 121.0 23.0 5.0 10\n"), 0o600))

	res, err := a.Analyze(ctx, path, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.TotalEvents)

	require.NoError(t, os.WriteFile(path, []byte(header+
		"eN 1 2024-01-01T00:00:00 121.0 23.0 5.0 10\n"+
		"eN 2 2024-01-02T00:00:00 121.2 23.1 5.4 12\n"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	res, err = a.Analyze(ctx, path, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.TotalEvents)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysisCache.WithLabelValues("miss")))
}

func TestAnalyzer_StampsSummaryWithClock(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(frozen)
	a := NewAnalyzer(nil, 1, discardLogger(), observability.NewMetricsForTesting(), WithClock(clock))
	ctx := context.Background()

	res, err := a.Analyze(ctx, sampleFile, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, frozen, res.Summary.GeneratedAt)

	clock.Advance(time.Hour)
	res, err = a.Analyze(ctx, sampleFile, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, frozen.Add(time.Hour), res.Summary.GeneratedAt, "cached analyses still take a fresh timestamp")
}

func TestAnalyzer_MissingFile(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	_, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), domain.Filter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzer_NoClassifier(t *testing.T) {
	a := NewAnalyzer(nil, 1, discardLogger(), observability.NewMetricsForTesting())
	res, err := a.Analyze(context.Background(), sampleFile, domain.Filter{})
	require.NoError(t, err)
	assert.Nil(t, res.Summary.Inland)
	assert.Nil(t, res.Summary.Offshore)
	for _, r := range res.Records {
		assert.Nil(t, r.IsInland)
	}
}

func TestAnalyzer_CompareRegions(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	west := domain.Region{MinLon: 120, MaxLon: 122, MinLat: 22, MaxLat: 25}
	east := domain.Region{MinLon: 122, MaxLon: 123, MinLat: 23, MaxLat: 24}

	cmp, err := a.CompareRegions(context.Background(), sampleFile, domain.Filter{}, west, east)
	require.NoError(t, err)

	assert.Equal(t, west, cmp.RegionA)
	assert.Equal(t, east, cmp.RegionB)
	assert.Equal(t, 4, cmp.SummaryA.TotalEvents)
	assert.Equal(t, 3, cmp.SummaryA.Detected)
	assert.Equal(t, 2, cmp.SummaryB.TotalEvents)
	assert.Equal(t, 1, cmp.SummaryB.Detected)

	require.NotNil(t, cmp.Diff.DetectionRateDiff)
	assert.InDelta(t, 25.0, *cmp.Diff.DetectionRateDiff, 1e-9)
	assert.NotNil(t, cmp.Diff.EpicenterErrorMeanDiffKm)
	assert.NotNil(t, cmp.Diff.ProcessingTimeMeanDiffS)
}

func TestAnalyzer_CompareRegions_EmptyRegion(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	nowhere := domain.Region{MinLon: 0, MaxLon: 1, MinLat: 0, MaxLat: 1}
	all := domain.Region{MinLon: 100, MaxLon: 140, MinLat: 10, MaxLat: 40}

	cmp, err := a.CompareRegions(context.Background(), sampleFile, domain.Filter{}, nowhere, all)
	require.NoError(t, err)
	assert.False(t, cmp.SummaryA.HasData())
	assert.Nil(t, cmp.Diff.DetectionRateDiff)
}
