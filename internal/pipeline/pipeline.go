package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
	"github.com/couchcryptid/eews-analyzer/internal/observability"
)

// Publisher hands an analysis result to a downstream sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, result domain.AnalysisResult) error
}

// RunInfo describes the most recent completed run.
type RunInfo struct {
	RunID           string        `json:"run_id"`
	Source          string        `json:"source"`
	TotalEvents     int           `json:"total_events"`
	DetectionRate   *float64      `json:"detection_rate,omitempty"`
	MalformedLines  int           `json:"malformed_lines"`
	Duration        time.Duration `json:"duration_ns"`
	FinishedAt      time.Time     `json:"finished_at"`
	PublishFailures []string      `json:"publish_failures,omitempty"`
}

// Pipeline runs an analysis and fans the result out to publishers.
type Pipeline struct {
	analyzer   *Analyzer
	publishers []Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	attempts   int
	ready      atomic.Bool
	last       atomic.Pointer[RunInfo]

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Pipeline. attempts bounds how often each publisher is tried
// per run; values below 1 mean a single attempt.
func New(analyzer *Analyzer, publishers []Publisher, logger *slog.Logger, metrics *observability.Metrics, attempts int) *Pipeline {
	if attempts < 1 {
		attempts = 1
	}
	return &Pipeline{
		analyzer:       analyzer,
		publishers:     publishers,
		logger:         logger,
		metrics:        metrics,
		attempts:       attempts,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// CheckReadiness returns nil once at least one run has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis has completed yet")
	}
	return nil
}

// LastRun returns the most recent completed run.
func (p *Pipeline) LastRun() (RunInfo, bool) {
	info := p.last.Load()
	if info == nil {
		return RunInfo{}, false
	}
	return *info, true
}

// Run analyzes path under filter and publishes the result to every
// publisher. Publisher failures are logged and counted but never fail the
// run; the computed result is returned regardless.
func (p *Pipeline) Run(ctx context.Context, path string, filter domain.Filter) (domain.AnalysisResult, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ctx, span := p.analyzer.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("eews.source", path)))
	defer span.End()

	p.logger.Info("analysis started", "source", path, "publishers", len(p.publishers))

	result, err := p.analyzer.Analyze(ctx, path, filter)
	if err != nil {
		p.metrics.AnalysisRuns.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return domain.AnalysisResult{}, err
	}

	p.metrics.AnalysisRuns.WithLabelValues("success").Inc()
	p.metrics.AnalysisDuration.Observe(result.Duration.Seconds())
	p.observeSummary(result.Summary)

	var failures []string
	for _, pub := range p.publishers {
		if err := p.publish(ctx, pub, result); err != nil {
			if ctx.Err() != nil {
				break
			}
			failures = append(failures, pub.Name())
		}
	}

	p.last.Store(&RunInfo{
		RunID:           result.RunID,
		Source:          result.Source,
		TotalEvents:     result.Summary.TotalEvents,
		DetectionRate:   result.Summary.DetectionRate,
		MalformedLines:  result.MalformedLines,
		Duration:        result.Duration,
		FinishedAt:      time.Now(),
		PublishFailures: failures,
	})
	p.ready.Store(true)

	p.logger.Info("analysis complete",
		"run_id", result.RunID,
		"source", path,
		"total_events", result.Summary.TotalEvents,
		"detected", result.Summary.Detected,
		"malformed_lines", result.MalformedLines,
		"duration", result.Duration,
		"publish_failures", len(failures),
	)
	return result, nil
}

func (p *Pipeline) observeSummary(s domain.Summary) {
	if s.DetectionRate != nil {
		p.metrics.DetectionRate.Set(*s.DetectionRate)
	}
	if s.Overall.EpicenterErrorKm.HasData() {
		p.metrics.EpicenterErrorMean.Set(s.Overall.EpicenterErrorKm.Mean)
	}
	if s.Overall.ProcessingTimeS.HasData() {
		p.metrics.ProcessingTimeMean.Set(s.Overall.ProcessingTimeS.Mean)
	}
	p.metrics.LastRunTimestamp.SetToCurrentTime()
}

// publish delivers result to pub, retrying with exponential backoff.
func (p *Pipeline) publish(ctx context.Context, pub Publisher, result domain.AnalysisResult) error {
	ctx, span := p.analyzer.tracer.Start(ctx, "pipeline.publish", trace.WithAttributes(attribute.String("eews.sink", pub.Name())))
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.PublishDuration.WithLabelValues(pub.Name()).Observe(time.Since(start).Seconds())
	}()

	backoff := p.initialBackoff
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = pub.Publish(ctx, result); err == nil {
			return nil
		}
		p.metrics.PublishErrors.WithLabelValues(pub.Name()).Inc()
		p.logger.Warn("publish failed",
			"sink", pub.Name(),
			"run_id", result.RunID,
			"attempt", attempt,
			"error", err,
		)
		if attempt == p.attempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}

	p.logger.Error("giving up on publisher", "sink", pub.Name(), "run_id", result.RunID, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "publish failed")
	return err
}
