package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	pkgch "SignalGate/pkg/clickhouse"
	applogger "SignalGate/pkg/logger"
)

// ObservationSchema holds the idempotent DDL for the validation log table.
// Passed to clickhouse.Client.InitSchema at startup.
var ObservationSchema = []string{
	`CREATE TABLE IF NOT EXISTS validation_observations (
        id String,
        signal_id String,
        asset LowCardinality(String),
        feed_source LowCardinality(String),
        observed_price Float64,
        observed_high Float64,
        observed_low Float64,
        check_type LowCardinality(String),
        main_state LowCardinality(String),
        is_discrepancy UInt8,
        discrepancy_type LowCardinality(String),
        latency_ms Int64,
        extra_context String,
        checked_at DateTime64(3, 'UTC')
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(checked_at)
    ORDER BY (signal_id, checked_at)`,
}

// CHObservationStore implements ObservationStore backed by ClickHouse. The
// table is insert-only; no code path updates or deletes rows.
type CHObservationStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHObservationStore(ch *pkgch.Client) *CHObservationStore {
	return &CHObservationStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHObservationStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHObservationStore) Append(ctx context.Context, o *models.ValidationObservation) error {
	start := time.Now()
	const q = `
        INSERT INTO validation_observations
            (id, signal_id, asset, feed_source, observed_price, observed_high,
             observed_low, check_type, main_state, is_discrepancy,
             discrepancy_type, latency_ms, extra_context, checked_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	flag := uint8(0)
	if o.IsDiscrepancy {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		o.ID, o.SignalID, o.Asset, o.FeedSource,
		o.ObservedPrice, o.ObservedHigh, o.ObservedLow,
		string(o.CheckType), string(o.MainState), flag,
		string(o.Discrepancy), o.LatencyMS, o.Context, o.CheckedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_observation error",
				applogger.String("signal_id", o.SignalID),
				applogger.String("asset", o.Asset),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append observation: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse append_observation ok",
			applogger.String("signal_id", o.SignalID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHObservationStore) BySignal(ctx context.Context, signalID string) ([]*models.ValidationObservation, error) {
	const q = `
        SELECT id, signal_id, asset, feed_source, observed_price, observed_high,
               observed_low, check_type, main_state, is_discrepancy,
               discrepancy_type, latency_ms, extra_context, checked_at
        FROM validation_observations
        WHERE signal_id = ?
        ORDER BY checked_at ASC
    `
	rows, err := s.db.QueryContext(ctx, q, signalID)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse observations_by_signal query error",
				applogger.String("signal_id", signalID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("observations by signal: %w", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

func (s *CHObservationStore) Discrepancies(ctx context.Context, from, to time.Time, limit int) ([]*models.ValidationObservation, error) {
	const q = `
        SELECT id, signal_id, asset, feed_source, observed_price, observed_high,
               observed_low, check_type, main_state, is_discrepancy,
               discrepancy_type, latency_ms, extra_context, checked_at
        FROM validation_observations
        WHERE is_discrepancy = 1 AND checked_at >= ? AND checked_at <= ?
        ORDER BY checked_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse discrepancies query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("discrepancies: %w", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

func scanObservations(rows *sql.Rows) ([]*models.ValidationObservation, error) {
	out := make([]*models.ValidationObservation, 0, 64)
	for rows.Next() {
		var (
			o     models.ValidationObservation
			check string
			state string
			disc  string
			flag  uint8
		)
		if err := rows.Scan(&o.ID, &o.SignalID, &o.Asset, &o.FeedSource,
			&o.ObservedPrice, &o.ObservedHigh, &o.ObservedLow,
			&check, &state, &flag, &disc, &o.LatencyMS, &o.Context, &o.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.CheckType = models.CheckType(check)
		o.MainState = models.SignalState(state)
		o.IsDiscrepancy = flag == 1
		o.Discrepancy = models.DiscrepancyType(disc)
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Health performs a connectivity check.
func (s *CHObservationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
