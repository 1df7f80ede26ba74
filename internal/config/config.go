package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

// Classifier names accepted by CLASSIFIER.
const (
	ClassifierQuadrant = "quadrant"
	ClassifierRayCast  = "raycast"
)

// Config holds all analyzer settings, populated from environment variables.
type Config struct {
	DataFile       string
	BoundaryFile   string
	Classifier     string
	NearBoundaryKm float64
	CacheSize      int

	// Filter narrows the analyzed records. CompareRegion, when set, is
	// contrasted against Filter.Region, or against all filtered data when no
	// region filter is set.
	Filter        domain.Filter
	CompareRegion *domain.Region

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaRecordsTopic string
	KafkaSummaryTopic string
	BatchSize         int

	SQLitePath      string
	PushgatewayURL  string
	PublishAttempts int

	TracingEnabled     bool
	TracingServiceName string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	nearKm, err := parsePositiveFloat("NEAR_BOUNDARY_KM", domain.DefaultNearBoundaryKm)
	if err != nil {
		return nil, err
	}

	filter, err := parseFilter()
	if err != nil {
		return nil, err
	}

	var compare *domain.Region
	if s := os.Getenv("COMPARE_REGION"); s != "" {
		r, err := domain.ParseRegion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid COMPARE_REGION: %w", err)
		}
		compare = &r
	}

	cfg := &Config{
		DataFile:       sharedcfg.EnvOrDefault("EEW_DATA_FILE", "EEW_ALL-2014-2025.txt"),
		BoundaryFile:   sharedcfg.EnvOrDefault("BOUNDARY_FILE", "taiwan.txt"),
		Classifier:     sharedcfg.EnvOrDefault("CLASSIFIER", ClassifierQuadrant),
		NearBoundaryKm: nearKm,
		CacheSize:      parsePositiveInt("CACHE_SIZE", 8),
		Filter:         filter,
		CompareRegion:  compare,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRecordsTopic: sharedcfg.EnvOrDefault("KAFKA_RECORDS_TOPIC", "eews-analyzed-records"),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "eews-summaries"),
		BatchSize:         batchSize,

		SQLitePath:      os.Getenv("SQLITE_PATH"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		PublishAttempts: parsePositiveInt("PUBLISH_ATTEMPTS", 3),

		TracingEnabled:     os.Getenv("TRACING_ENABLED") == "true",
		TracingServiceName: sharedcfg.EnvOrDefault("TRACING_SERVICE_NAME", "eews-analyzer"),
	}

	if cfg.DataFile == "" {
		return nil, errors.New("EEW_DATA_FILE is required")
	}
	if cfg.Classifier != ClassifierQuadrant && cfg.Classifier != ClassifierRayCast {
		return nil, fmt.Errorf("invalid CLASSIFIER %q: want %s or %s", cfg.Classifier, ClassifierQuadrant, ClassifierRayCast)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaRecordsTopic == "" || cfg.KafkaSummaryTopic == "" {
			return nil, errors.New("KAFKA_RECORDS_TOPIC and KAFKA_SUMMARY_TOPIC are required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseFilter() (domain.Filter, error) {
	var f domain.Filter
	var err error

	if f.MinMagnitude, err = optionalFloat("FILTER_MIN_MAGNITUDE"); err != nil {
		return f, err
	}
	if f.MaxMagnitude, err = optionalFloat("FILTER_MAX_MAGNITUDE"); err != nil {
		return f, err
	}
	if f.MaxDepthKm, err = optionalFloat("FILTER_MAX_DEPTH"); err != nil {
		return f, err
	}
	if f.MinMagnitude != nil && f.MaxMagnitude != nil && *f.MinMagnitude > *f.MaxMagnitude {
		return f, errors.New("FILTER_MIN_MAGNITUDE exceeds FILTER_MAX_MAGNITUDE")
	}

	if s := os.Getenv("FILTER_REGION"); s != "" {
		r, err := domain.ParseRegion(s)
		if err != nil {
			return f, fmt.Errorf("invalid FILTER_REGION: %w", err)
		}
		f.Region = &r
	}

	if s := os.Getenv("FILTER_YEAR"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y <= 0 {
			return f, fmt.Errorf("invalid FILTER_YEAR %q", s)
		}
		f.Year = &y
	}
	return f, nil
}

func optionalFloat(key string) (*float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	return &v, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, s)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
