package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
	"github.com/couchcryptid/eews-analyzer/internal/observability"
)

const tracerName = "github.com/couchcryptid/eews-analyzer/internal/pipeline"

// Analyzer turns event files into analysis results. Parsed and classified
// records are cached per file version, so repeated queries with different
// filters only pay for filtering and aggregation.
type Analyzer struct {
	classifier domain.BoundaryClassifier
	cache      *datasetCache
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithClock sets the time source that stamps Summary.GeneratedAt.
func WithClock(c clockwork.Clock) AnalyzerOption {
	return func(a *Analyzer) { a.clock = c }
}

// NewAnalyzer creates an Analyzer. A nil classifier disables inland
// classification.
func NewAnalyzer(classifier domain.BoundaryClassifier, cacheSize int, logger *slog.Logger, metrics *observability.Metrics, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		classifier: classifier,
		cache:      newDatasetCache(cacheSize),
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze loads path, applies filter, and aggregates the matching records.
// The returned Records slice may be shared with the cache and must not be
// modified.
func (a *Analyzer) Analyze(ctx context.Context, path string, filter domain.Filter) (domain.AnalysisResult, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analyzer.analyze", trace.WithAttributes(attribute.String("eews.source", path)))
	defer span.End()

	ds, err := a.load(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return domain.AnalysisResult{}, err
	}

	records := filter.Apply(ds.records)
	summary := a.aggregate(ctx, records)

	span.SetAttributes(
		attribute.Int("eews.records", len(records)),
		attribute.Int("eews.malformed_lines", ds.malformed),
	)

	return domain.AnalysisResult{
		RunID:          uuid.NewString(),
		Source:         path,
		Records:        records,
		Summary:        summary,
		MalformedLines: ds.malformed,
		Duration:       time.Since(start),
	}, nil
}

// RegionComparison contrasts two regions of the same file under a shared
// base filter.
type RegionComparison struct {
	RegionA  domain.Region     `json:"region_a"`
	RegionB  domain.Region     `json:"region_b"`
	SummaryA domain.Summary    `json:"summary_a"`
	SummaryB domain.Summary    `json:"summary_b"`
	Diff     domain.Comparison `json:"diff"`
}

// CompareRegions aggregates path twice, restricted to regionA and regionB,
// and reports their differences (A minus B). Any region in base is replaced.
func (a *Analyzer) CompareRegions(ctx context.Context, path string, base domain.Filter, regionA, regionB domain.Region) (RegionComparison, error) {
	ctx, span := a.tracer.Start(ctx, "analyzer.compare_regions", trace.WithAttributes(attribute.String("eews.source", path)))
	defer span.End()

	ds, err := a.load(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return RegionComparison{}, err
	}

	sa := a.aggregate(ctx, base.WithRegion(regionA).Apply(ds.records))
	sb := a.aggregate(ctx, base.WithRegion(regionB).Apply(ds.records))

	return RegionComparison{
		RegionA:  regionA,
		RegionB:  regionB,
		SummaryA: sa,
		SummaryB: sb,
		Diff:     domain.Compare(sa, sb),
	}, nil
}

func (a *Analyzer) aggregate(ctx context.Context, records []domain.AnalyzedRecord) domain.Summary {
	_, span := a.tracer.Start(ctx, "analyzer.aggregate", trace.WithAttributes(attribute.Int("eews.records", len(records))))
	defer span.End()
	return domain.Aggregate(records, a.clock.Now())
}

// load returns the analyzed records of path, reading through the cache.
func (a *Analyzer) load(ctx context.Context, path string) (dataset, error) {
	ctx, span := a.tracer.Start(ctx, "analyzer.load")
	defer span.End()

	info, err := os.Stat(path)
	if err != nil {
		return dataset{}, fmt.Errorf("stat event file: %w", err)
	}

	version := versionOf(path, info)
	if ds, ok := a.cache.get(version); ok {
		a.metrics.AnalysisCache.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Bool("eews.cache_hit", true))
		return ds, nil
	}
	a.metrics.AnalysisCache.WithLabelValues("miss").Inc()
	span.SetAttributes(attribute.Bool("eews.cache_hit", false))

	ds, err := a.parseAndAnalyze(ctx, path)
	if err != nil {
		return dataset{}, err
	}
	a.cache.put(version, ds)
	return ds, nil
}

func (a *Analyzer) parseAndAnalyze(ctx context.Context, path string) (dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset{}, fmt.Errorf("open event file: %w", err)
	}
	defer f.Close()

	res, err := domain.ParseRecords(f)
	if err != nil {
		return dataset{}, err
	}
	if ctx.Err() != nil {
		return dataset{}, ctx.Err()
	}

	for _, m := range res.Malformed {
		a.logger.Debug("skipping malformed line", "source", path, "line", m.Line, "reason", m.Reason)
	}
	if len(res.Malformed) > 0 {
		a.logger.Warn("event file has malformed lines", "source", path, "count", len(res.Malformed))
	}
	a.metrics.RecordsParsed.Add(float64(len(res.Records)))
	a.metrics.MalformedLines.Add(float64(len(res.Malformed)))

	records := domain.AnalyzeRecords(res.Records, a.classifier)
	a.observeClassification(records)

	a.logger.Info("event file analyzed",
		"source", path,
		"records", len(records),
		"malformed_lines", len(res.Malformed),
	)
	return dataset{records: records, malformed: len(res.Malformed)}, nil
}

func (a *Analyzer) observeClassification(records []domain.AnalyzedRecord) {
	for _, r := range records {
		result := "unknown"
		if r.IsInland != nil {
			result = "offshore"
			if *r.IsInland {
				result = "inland"
			}
		}
		a.metrics.Classification.WithLabelValues(result).Inc()
	}
}
