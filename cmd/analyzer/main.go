package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/eews-analyzer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/eews-analyzer/internal/adapter/kafka"
	"github.com/couchcryptid/eews-analyzer/internal/adapter/sqlite"
	"github.com/couchcryptid/eews-analyzer/internal/config"
	"github.com/couchcryptid/eews-analyzer/internal/domain"
	"github.com/couchcryptid/eews-analyzer/internal/observability"
	"github.com/couchcryptid/eews-analyzer/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("analyzer failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.TracingServiceName,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	classifier, err := loadClassifier(cfg, logger)
	if err != nil {
		return err
	}

	// Sinks run in this order; the Pushgateway goes last so it reports
	// publish errors of the others.
	var publishers []pipeline.Publisher
	var closers []io.Closer

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, writer)
		closers = append(closers, writer)
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers,
			"records_topic", cfg.KafkaRecordsTopic,
			"summary_topic", cfg.KafkaSummaryTopic,
		)
	}

	var archive *sqlite.Store
	if cfg.SQLitePath != "" {
		archive, err = sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		publishers = append(publishers, archive)
		closers = append(closers, archive)
	}

	if cfg.PushgatewayURL != "" {
		publishers = append(publishers, observability.NewPusher(cfg.PushgatewayURL, "eews-analyzer", metrics))
		logger.Info("pushgateway enabled", "url", cfg.PushgatewayURL)
	}

	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()

	analyzer := pipeline.NewAnalyzer(classifier, cfg.CacheSize, logger, metrics)
	p := pipeline.New(analyzer, publishers, logger, metrics, cfg.PublishAttempts)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		status := httpadapter.RunStatus{Runs: p}
		if archive != nil {
			status.Archive = archive
		}
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, status, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()
	}

	result, err := p.Run(ctx, cfg.DataFile, cfg.Filter)
	if err != nil {
		shutdownServer(srv, cfg, logger)
		return err
	}
	logSummary(logger, result)

	if cfg.CompareRegion != nil {
		if err := compareRegions(ctx, analyzer, cfg, logger); err != nil {
			logger.Error("region comparison failed", "error", err)
		}
	}

	if srv != nil {
		logger.Info("analysis complete; serving until interrupted", "addr", cfg.HTTPAddr)
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownServer(srv, cfg, logger)
	}

	logger.Info("shutdown complete")
	return nil
}

// loadClassifier reads the boundary file. A missing file disables
// classification; an unreadable or malformed one is an error.
func loadClassifier(cfg *config.Config, logger *slog.Logger) (domain.BoundaryClassifier, error) {
	f, err := os.Open(cfg.BoundaryFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("boundary file not found; inland/offshore classification disabled", "path", cfg.BoundaryFile)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open boundary file: %w", err)
	}
	defer f.Close()

	boundary, err := domain.LoadBoundary(f)
	if err != nil {
		return nil, fmt.Errorf("load boundary %s: %w", cfg.BoundaryFile, err)
	}
	if boundary.Empty() {
		logger.Warn("boundary file is empty; inland/offshore classification disabled", "path", cfg.BoundaryFile)
		return nil, nil
	}

	logger.Info("boundary loaded", "path", cfg.BoundaryFile, "points", boundary.Len(), "classifier", cfg.Classifier)
	if cfg.Classifier == config.ClassifierRayCast {
		return domain.NewRayCastClassifier(boundary), nil
	}
	return domain.NewQuadrantClassifier(boundary, cfg.NearBoundaryKm), nil
}

// compareRegions contrasts COMPARE_REGION with FILTER_REGION, or with the
// whole filtered dataset when no region filter is set.
func compareRegions(ctx context.Context, analyzer *pipeline.Analyzer, cfg *config.Config, logger *slog.Logger) error {
	other := domain.World
	if cfg.Filter.Region != nil {
		other = *cfg.Filter.Region
	}

	cmp, err := analyzer.CompareRegions(ctx, cfg.DataFile, cfg.Filter, *cfg.CompareRegion, other)
	if err != nil {
		return err
	}

	attrs := []any{
		"region_a", cmp.RegionA,
		"region_b", cmp.RegionB,
		"events_a", cmp.SummaryA.TotalEvents,
		"events_b", cmp.SummaryB.TotalEvents,
	}
	if d := cmp.Diff.DetectionRateDiff; d != nil {
		attrs = append(attrs, "detection_rate_diff", *d)
	}
	if d := cmp.Diff.EpicenterErrorMeanDiffKm; d != nil {
		attrs = append(attrs, "epicenter_error_mean_diff_km", *d)
	}
	if d := cmp.Diff.ProcessingTimeMeanDiffS; d != nil {
		attrs = append(attrs, "processing_time_mean_diff_s", *d)
	}
	logger.Info("region comparison", attrs...)
	return nil
}

func logSummary(logger *slog.Logger, result domain.AnalysisResult) {
	s := result.Summary
	if !s.HasData() {
		logger.Warn("no events matched; nothing to summarize", "source", result.Source)
		return
	}

	logger.Info("detection summary",
		"run_id", result.RunID,
		"total", s.TotalEvents,
		"detected", s.Detected,
		"missed", s.Missed,
		"late_or_low_confidence", s.LateOrLowConfidence,
		"detection_rate_pct", *s.DetectionRate,
		"malformed_lines", result.MalformedLines,
	)

	logErrorStats(logger, "overall", s.Overall)
	if s.Inland != nil {
		logErrorStats(logger, "inland", *s.Inland)
	}
	if s.Offshore != nil {
		logErrorStats(logger, "offshore", *s.Offshore)
	}
	for _, b := range s.ProcessingTimeBuckets {
		if b.Stats.Count == 0 {
			continue
		}
		logger.Debug("processing time bucket",
			"bucket", b.Label,
			"count", b.Stats.Count,
			"epicenter_error_mean_km", b.Stats.EpicenterErrorKm.Mean,
		)
	}
	if u := s.UndetectedMagnitude; u.HasData() {
		logger.Info("undetected magnitudes", "count", u.Count, "mean", u.Mean, "min", u.Min, "max", u.Max)
	}
}

func logErrorStats(logger *slog.Logger, subset string, es domain.ErrorStats) {
	if es.Count == 0 {
		return
	}
	logger.Info("error statistics",
		"subset", subset,
		"count", es.Count,
		"epicenter_error_mean_km", es.EpicenterErrorKm.Mean,
		"epicenter_error_median_km", es.EpicenterErrorKm.Median,
		"epicenter_error_rms_km", es.EpicenterErrorKm.RMS,
		"magnitude_error_mean", es.MagnitudeError.Mean,
		"depth_error_mean_km", es.DepthErrorKm.Mean,
		"processing_time_mean_s", es.ProcessingTimeS.Mean,
		"processing_time_max_s", es.ProcessingTimeS.Max,
	)
}

func shutdownServer(srv *httpadapter.Server, cfg *config.Config, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
