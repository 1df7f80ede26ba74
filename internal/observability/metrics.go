package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eews"

// Metrics holds the Prometheus counters, histograms, and gauges for the analyzer.
type Metrics struct {
	RecordsParsed    prometheus.Counter
	MalformedLines   prometheus.Counter
	AnalysisRuns     *prometheus.CounterVec // labels: outcome={success,error}
	AnalysisDuration prometheus.Histogram
	Classification   *prometheus.CounterVec   // labels: result={inland,offshore,unknown}
	AnalysisCache    *prometheus.CounterVec   // labels: result={hit,miss}
	PublishErrors    *prometheus.CounterVec   // labels: sink
	PublishDuration  *prometheus.HistogramVec // labels: sink

	// Gauges describing the most recent run.
	DetectionRate      prometheus.Gauge
	EpicenterErrorMean prometheus.Gauge
	ProcessingTimeMean prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge
	PipelineRunning    prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Total event records parsed from data files.",
		}),
		MalformedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_lines_total",
			Help:      "Total data file lines skipped as malformed.",
		}),
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete load-analyze-aggregate cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Classification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_total",
			Help:      "Inland classification results by verdict.",
		}, []string{"result"}),
		AnalysisCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_total",
			Help:      "Parsed-file cache lookups by result.",
		}, []string{"result"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publish attempts by sink.",
		}, []string{"sink"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing one analysis result, by sink.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"sink"}),
		DetectionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detection_rate_percent",
			Help:      "Detection rate of the most recent analysis.",
		}),
		EpicenterErrorMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "epicenter_error_mean_km",
			Help:      "Mean epicenter error of the most recent analysis.",
		}),
		ProcessingTimeMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processing_time_mean_seconds",
			Help:      "Mean alert processing time of the most recent analysis.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent analysis finished.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while an analysis run is in progress, 0 otherwise.",
		}),
	}
}

// Collectors lists every metric, for registration and pushing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsParsed,
		m.MalformedLines,
		m.AnalysisRuns,
		m.AnalysisDuration,
		m.Classification,
		m.AnalysisCache,
		m.PublishErrors,
		m.PublishDuration,
		m.DetectionRate,
		m.EpicenterErrorMean,
		m.ProcessingTimeMean,
		m.LastRunTimestamp,
		m.PipelineRunning,
	}
}

// NewMetrics creates and registers all analyzer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.Collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
