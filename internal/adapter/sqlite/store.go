// Package sqlite archives analysis runs in a SQLite database so results can
// be compared across data releases without re-reading the event files.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

// ErrRunNotFound is returned when a run ID is not in the archive.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	run_id          TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	total_events    INTEGER NOT NULL,
	detected        INTEGER NOT NULL,
	missed          INTEGER NOT NULL,
	late            INTEGER NOT NULL,
	detection_rate  REAL,
	malformed_lines INTEGER NOT NULL,
	duration_ms     INTEGER NOT NULL,
	generated_at    TEXT NOT NULL,
	summary_json    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analyzed_records (
	run_id             TEXT NOT NULL REFERENCES analysis_runs(run_id) ON DELETE CASCADE,
	seq                INTEGER NOT NULL,
	record_id          TEXT NOT NULL,
	type               TEXT NOT NULL,
	raw_type           TEXT NOT NULL,
	origin_time        TEXT NOT NULL,
	cat_lon            REAL NOT NULL,
	cat_lat            REAL NOT NULL,
	cat_magnitude      REAL NOT NULL,
	cat_depth_km       REAL NOT NULL,
	alert_lon          REAL,
	alert_lat          REAL,
	alert_magnitude    REAL,
	alert_depth_km     REAL,
	processing_time_s  REAL,
	secondary_time_s   REAL,
	epicenter_error_km REAL,
	magnitude_error    REAL,
	depth_error_km     REAL,
	is_inland          INTEGER,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_generated_at ON analysis_runs(generated_at);
`

// Store is a SQLite-backed archive of analysis results. It implements
// pipeline.Publisher.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// One connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("sqlite archive ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Publish stores the run and its records in one transaction. Publishing the
// same run twice replaces the earlier copy.
func (s *Store) Publish(ctx context.Context, result domain.AnalysisResult) error {
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("serialize summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_runs WHERE run_id = ?`, result.RunID); err != nil {
		return fmt.Errorf("replace run %s: %w", result.RunID, err)
	}

	sum := result.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, source, total_events, detected, missed, late,
			detection_rate, malformed_lines, duration_ms, generated_at, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Source, sum.TotalEvents, sum.Detected, sum.Missed, sum.LateOrLowConfidence,
		nullFloat(sum.DetectionRate), result.MalformedLines, result.Duration.Milliseconds(),
		sum.GeneratedAt.UTC().Format(time.RFC3339Nano), string(summaryJSON),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", result.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analyzed_records (run_id, seq, record_id, type, raw_type, origin_time,
			cat_lon, cat_lat, cat_magnitude, cat_depth_km,
			alert_lon, alert_lat, alert_magnitude, alert_depth_km, processing_time_s,
			secondary_time_s, epicenter_error_km, magnitude_error, depth_error_km, is_inland)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range result.Records {
		var alertLon, alertLat, alertMag, alertDepth, procTime, secondary sql.NullFloat64
		if r.Alert != nil {
			alertLon = sql.NullFloat64{Float64: r.Alert.Lon, Valid: true}
			alertLat = sql.NullFloat64{Float64: r.Alert.Lat, Valid: true}
			alertMag = sql.NullFloat64{Float64: r.Alert.Magnitude, Valid: true}
			alertDepth = sql.NullFloat64{Float64: r.Alert.DepthKm, Valid: true}
			procTime = sql.NullFloat64{Float64: r.Alert.ProcessingTimeS, Valid: true}
			secondary = nullFloat(r.Alert.SecondaryProcessingTimeS)
		}
		var inland sql.NullBool
		if r.IsInland != nil {
			inland = sql.NullBool{Bool: *r.IsInland, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			result.RunID, i, r.ID, string(r.Type), r.RawType, r.OriginTime,
			r.Catalog.Lon, r.Catalog.Lat, r.Catalog.Magnitude, r.Catalog.DepthKm,
			alertLon, alertLat, alertMag, alertDepth, procTime, secondary,
			nullFloat(r.EpicenterErrorKm), nullFloat(r.MagnitudeError), nullFloat(r.DepthErrorKm), inland,
		); err != nil {
			return fmt.Errorf("insert record %d of run %s: %w", i, result.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", result.RunID, err)
	}

	s.logger.Debug("run archived", "run_id", result.RunID, "records", len(result.Records))
	return nil
}

// ListRuns returns up to limit archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.ArchivedRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, total_events, detected, detection_rate, malformed_lines, generated_at
		FROM analysis_runs
		ORDER BY generated_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ArchivedRun
	for rows.Next() {
		var (
			r           domain.ArchivedRun
			rate        sql.NullFloat64
			generatedAt string
		)
		if err := rows.Scan(&r.RunID, &r.Source, &r.TotalEvents, &r.Detected, &rate, &r.MalformedLines, &generatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rate.Valid {
			r.DetectionRate = &rate.Float64
		}
		if r.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
			return nil, fmt.Errorf("parse generated_at of run %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadSummary returns the archived summary of a run.
func (s *Store) LoadSummary(ctx context.Context, runID string) (domain.Summary, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT summary_json FROM analysis_runs WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return domain.Summary{}, fmt.Errorf("load run %s: %w", runID, err)
	}

	var sum domain.Summary
	if err := json.Unmarshal([]byte(raw), &sum); err != nil {
		return domain.Summary{}, fmt.Errorf("decode summary of run %s: %w", runID, err)
	}
	return sum, nil
}

// LoadRecords returns the archived records of a run in their original order.
func (s *Store) LoadRecords(ctx context.Context, runID string) ([]domain.AnalyzedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, type, raw_type, origin_time, cat_lon, cat_lat, cat_magnitude, cat_depth_km,
			alert_lon, alert_lat, alert_magnitude, alert_depth_km, processing_time_s,
			secondary_time_s, epicenter_error_km, magnitude_error, depth_error_km, is_inland
		FROM analyzed_records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load records of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.AnalyzedRecord
	for rows.Next() {
		var r domain.AnalyzedRecord
		var typ string
		var alertLon, alertLat, alertMag, alertDepth, procTime sql.NullFloat64
		var secondary, epiErr, magErr, depthErr sql.NullFloat64
		var inland sql.NullBool
		if err := rows.Scan(&r.ID, &typ, &r.RawType, &r.OriginTime,
			&r.Catalog.Lon, &r.Catalog.Lat, &r.Catalog.Magnitude, &r.Catalog.DepthKm,
			&alertLon, &alertLat, &alertMag, &alertDepth, &procTime,
			&secondary, &epiErr, &magErr, &depthErr, &inland,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.Type = domain.TypeCode(typ)
		if alertLon.Valid {
			r.Alert = &domain.Alert{
				Hypocenter: domain.Hypocenter{
					Lon: alertLon.Float64, Lat: alertLat.Float64,
					Magnitude: alertMag.Float64, DepthKm: alertDepth.Float64,
				},
				ProcessingTimeS:          procTime.Float64,
				SecondaryProcessingTimeS: floatPtr(secondary),
			}
		}
		r.EpicenterErrorKm = floatPtr(epiErr)
		r.MagnitudeError = floatPtr(magErr)
		r.DepthErrorKm = floatPtr(depthErr)
		if inland.Valid {
			v := inland.Bool
			r.IsInland = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
