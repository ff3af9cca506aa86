package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	pkgch "SignalGate/pkg/clickhouse"
	applogger "SignalGate/pkg/logger"
)

// ArchiveSchema holds the idempotent DDL for the terminal-signal audit table.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS signal_archive (
        id String,
        asset LowCardinality(String),
        strategy LowCardinality(String),
        direction LowCardinality(String),
        entry_price Float64,
        take_profit Float64,
        stop_loss Float64,
        strength Float64,
        reward_risk Float64,
        state LowCardinality(String),
        result LowCardinality(String),
        generated_at DateTime64(3, 'UTC'),
        closed_at DateTime64(3, 'UTC'),
        doc String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(generated_at)
    ORDER BY (asset, generated_at)`,
}

// CHSignalArchive implements SignalArchive backed by ClickHouse. Terminal
// signals land here once, with the full document preserved as JSON alongside
// the queryable columns.
type CHSignalArchive struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSignalArchive(ch *pkgch.Client) *CHSignalArchive {
	return &CHSignalArchive{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSignalArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSignalArchive) Archive(ctx context.Context, sig *models.Signal) error {
	start := time.Now()
	doc, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal for archive: %w", err)
	}
	closed := sig.GeneratedAt
	if sig.ClosedAt != nil {
		closed = *sig.ClosedAt
	}
	const q = `
        INSERT INTO signal_archive
            (id, asset, strategy, direction, entry_price, take_profit,
             stop_loss, strength, reward_risk, state, result, generated_at,
             closed_at, doc)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = s.db.ExecContext(ctx, q,
		sig.ID, sig.Asset, sig.Strategy, string(sig.Direction),
		sig.EntryPrice, sig.TakeProfit, sig.StopLoss,
		sig.Strength, sig.RewardRisk,
		string(sig.State), string(sig.Result),
		sig.GeneratedAt, closed, string(doc),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse archive_signal error",
				applogger.String("signal_id", sig.ID),
				applogger.String("asset", sig.Asset),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("archive signal: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse archive_signal ok",
			applogger.String("signal_id", sig.ID),
			applogger.String("result", string(sig.Result)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHSignalArchive) History(ctx context.Context, asset string, limit int) ([]*models.Signal, error) {
	const q = `
        SELECT doc
        FROM signal_archive
        WHERE asset = ?
        ORDER BY generated_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, asset, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal_history query error",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("signal history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Signal, 0, limit)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan archived signal: %w", err)
		}
		var sig models.Signal
		if err := json.Unmarshal([]byte(doc), &sig); err != nil {
			return nil, fmt.Errorf("unmarshal archived signal: %w", err)
		}
		out = append(out, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
