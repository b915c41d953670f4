package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ForecastBench/internal/domain/models"
	"ForecastBench/internal/domain/repository"
	pkgkafka "ForecastBench/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse. Outcomes and label
// resolutions land in separate tables; LoadHistories rejoins them so the
// benchmark can rebuild its state on restart.
type ClickHouseStorage struct {
	db               *sql.DB
	outcomesTable    string
	resolutionsTable string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, outcomesTable, resolutionsTable string) repository.Storage {
	return &ClickHouseStorage{db: db, outcomesTable: outcomesTable, resolutionsTable: resolutionsTable}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			round UInt32,
			model LowCardinality(String),
			horizon LowCardinality(String),
			prob Float64,
			failed UInt8,
			failure LowCardinality(String),
			at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree
		ORDER BY (model, horizon, round)`, s.outcomesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			round UInt32,
			horizon LowCardinality(String),
			label UInt8,
			at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree
		ORDER BY (horizon, round)`, s.resolutionsTable),
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, o *models.RoundOutcome) error {
	q := fmt.Sprintf("INSERT INTO %s (round, model, horizon, prob, failed, failure, at) VALUES (?, ?, ?, ?, ?, ?, ?)", s.outcomesTable)
	_, err := s.db.ExecContext(ctx, q,
		uint32(o.Round),
		o.Model,
		string(o.Horizon),
		o.Prob,
		boolToUInt8(o.Failed),
		string(o.Failure),
		o.At,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, outcomes []*models.RoundOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(outcomes); start += chunkSize {
		end := start + chunkSize
		if end > len(outcomes) {
			end = len(outcomes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, o := range outcomes[start:end] {
			if o == nil || o.Model == "" || o.Round <= 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				uint32(o.Round),
				o.Model,
				string(o.Horizon),
				o.Prob,
				boolToUInt8(o.Failed),
				string(o.Failure),
				o.At,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (round, model, horizon, prob, failed, failure, at) VALUES %s", s.outcomesTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) StoreResolution(ctx context.Context, r *models.LabelResolution) error {
	q := fmt.Sprintf("INSERT INTO %s (round, horizon, label, at) VALUES (?, ?, ?, ?)", s.resolutionsTable)
	_, err := s.db.ExecContext(ctx, q,
		uint32(r.Round),
		string(r.Horizon),
		boolToUInt8(r.Label),
		r.At,
	)
	return err
}

// LoadHistories rebuilds every model's history from persisted outcomes and
// applies the persisted label resolutions on top.
func (s *ClickHouseStorage) LoadHistories(ctx context.Context) (map[string]*models.ModelHistory, error) {
	q := fmt.Sprintf("SELECT round, model, horizon, prob, failed, failure, at FROM %s ORDER BY model, horizon, round", s.outcomesTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	defer rows.Close()

	histories := make(map[string]*models.ModelHistory)
	for rows.Next() {
		var (
			round   uint32
			model   string
			horizon string
			prob    float64
			failed  uint8
			failure string
			at      time.Time
		)
		if err := rows.Scan(&round, &model, &horizon, &prob, &failed, &failure, &at); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		h, ok := histories[model]
		if !ok {
			h = models.NewModelHistory(model)
			histories[model] = h
		}
		o := models.RoundOutcome{
			Round:   int(round),
			Model:   model,
			Horizon: models.Horizon(horizon),
			Prob:    prob,
			Failed:  failed != 0,
			At:      at,
		}
		if o.Failed {
			o.Failure = models.NormalizeFailureType(failure)
		}
		h.Append(o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.applyResolutions(ctx, histories); err != nil {
		return nil, err
	}
	return histories, nil
}

func (s *ClickHouseStorage) applyResolutions(ctx context.Context, histories map[string]*models.ModelHistory) error {
	q := fmt.Sprintf("SELECT round, horizon, label FROM %s ORDER BY horizon, round", s.resolutionsTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("load resolutions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			round   uint32
			horizon string
			label   uint8
		)
		if err := rows.Scan(&round, &horizon, &label); err != nil {
			return fmt.Errorf("scan resolution: %w", err)
		}
		for _, h := range histories {
			h.Resolve(int(round), models.Horizon(horizon), label != 0)
		}
	}
	return rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func outcomeKey(o *models.RoundOutcome) []byte {
	return []byte(fmt.Sprintf("%s/%s", o.Model, o.Horizon))
}

func (p *KafkaPublisher) Publish(ctx context.Context, o *models.RoundOutcome) error {
	return p.producer.Publish(ctx, p.topic, outcomeKey(o), o)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, outcomes []*models.RoundOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(outcomes))
	for i, o := range outcomes {
		msgs[i] = pkgkafka.Message{
			Key:   outcomeKey(o),
			Value: o,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
