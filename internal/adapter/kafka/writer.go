package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/eews-analyzer/internal/config"
	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes analysis results to Kafka: one message per analyzed
// record on the records topic, then one summary message on the summary topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer       messageWriter
	recordsTopic string
	summaryTopic string
	batchSize    int
	logger       *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, cfg.KafkaRecordsTopic, cfg.KafkaSummaryTopic, cfg.BatchSize, logger)
}

func newWriter(w messageWriter, recordsTopic, summaryTopic string, batchSize int, logger *slog.Logger) *Writer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Writer{
		writer:       w,
		recordsTopic: recordsTopic,
		summaryTopic: summaryTopic,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish writes the records in batches of batchSize and finishes with the
// summary, so consumers that see a summary have already been sent its records.
func (w *Writer) Publish(ctx context.Context, result domain.AnalysisResult) error {
	batch := make([]kafkago.Message, 0, w.batchSize)
	for i := range result.Records {
		msg, err := serializeRecord(w.recordsTopic, result.RunID, result.Records[i])
		if err != nil {
			return err
		}
		batch = append(batch, msg)
		if len(batch) == w.batchSize {
			if err := w.writer.WriteMessages(ctx, batch...); err != nil {
				return fmt.Errorf("write record batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := w.writer.WriteMessages(ctx, batch...); err != nil {
			return fmt.Errorf("write record batch: %w", err)
		}
	}

	msg, err := serializeSummary(w.summaryTopic, result)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	w.logger.Debug("published to kafka",
		"run_id", result.RunID,
		"records", len(result.Records),
		"records_topic", w.recordsTopic,
		"summary_topic", w.summaryTopic,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// summaryMessage is the summary topic payload. Records travel separately.
type summaryMessage struct {
	RunID          string         `json:"run_id"`
	Source         string         `json:"source"`
	MalformedLines int            `json:"malformed_lines"`
	DurationMs     int64          `json:"duration_ms"`
	Summary        domain.Summary `json:"summary"`
}

// serializeRecord marshals an AnalyzedRecord into a Kafka message.
func serializeRecord(topic, runID string, rec domain.AnalyzedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", rec.ID, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "type", Value: []byte(rec.Type)},
		},
	}, nil
}

// serializeSummary marshals the run summary into a Kafka message keyed by run ID.
func serializeSummary(topic string, result domain.AnalysisResult) (kafkago.Message, error) {
	data, err := json.Marshal(summaryMessage{
		RunID:          result.RunID,
		Source:         result.Source,
		MalformedLines: result.MalformedLines,
		DurationMs:     result.Duration.Milliseconds(),
		Summary:        result.Summary,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(result.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(result.RunID)},
			{Key: "generated_at", Value: []byte(result.Summary.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
