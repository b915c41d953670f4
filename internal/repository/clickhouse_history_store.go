package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ForecastBench/internal/domain/models"
	pkgch "ForecastBench/pkg/clickhouse"
	applogger "ForecastBench/pkg/logger"
)

// CHHistoryStore implements HistoryStore backed by ClickHouse.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, table string) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHHistoryStore) GetOutcomes(ctx context.Context, model string, horizon models.Horizon, fromRound, toRound int) ([]models.RoundOutcome, error) {
	start := time.Now()
	const qtpl = `
        SELECT round, model, horizon, prob, failed, failure, at
        FROM %s
        WHERE model = ? AND horizon = ? AND round >= ? AND round <= ?
        ORDER BY round ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, model, string(horizon), fromRound, toRound)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_outcomes query error",
				applogger.String("model", model),
				applogger.String("horizon", string(horizon)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get outcomes: %w", err)
	}
	defer rows.Close()

	out, err := scanOutcomes(rows)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_outcomes scan error",
				applogger.String("model", model),
				applogger.String("horizon", string(horizon)),
				applogger.Error(err),
			)
		}
		return nil, err
	}
	if s.l != nil {
		s.l.Info("clickhouse get_outcomes ok",
			applogger.String("model", model),
			applogger.String("horizon", string(horizon)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHHistoryStore) GetLatestNOutcomes(ctx context.Context, model string, n int, horizon models.Horizon) ([]models.RoundOutcome, error) {
	start := time.Now()
	const qtpl = `
        SELECT round, model, horizon, prob, failed, failure, at
        FROM %s
        WHERE model = ? AND horizon = ?
        ORDER BY round DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, model, string(horizon), n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_outcomes query error",
				applogger.String("model", model),
				applogger.String("horizon", string(horizon)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest outcomes: %w", err)
	}
	defer rows.Close()

	tmp, err := scanOutcomes(rows)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_outcomes scan error",
				applogger.String("model", model),
				applogger.String("horizon", string(horizon)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse latest_outcomes ok",
			applogger.String("model", model),
			applogger.String("horizon", string(horizon)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func scanOutcomes(rows *sql.Rows) ([]models.RoundOutcome, error) {
	out := make([]models.RoundOutcome, 0, 128)
	for rows.Next() {
		var (
			round   uint32
			failed  uint8
			failure string
			o       models.RoundOutcome
			horizon string
		)
		if err := rows.Scan(&round, &o.Model, &horizon, &o.Prob, &failed, &failure, &o.At); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Round = int(round)
		o.Horizon = models.Horizon(horizon)
		o.Failed = failed != 0
		if o.Failed {
			o.Failure = models.NormalizeFailureType(failure)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
