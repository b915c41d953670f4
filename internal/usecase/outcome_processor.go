package usecase

import (
	"context"
	"fmt"
	"time"

	"ForecastBench/internal/domain/models"
	drepo "ForecastBench/internal/domain/repository"
)

// OutcomeProcessor routes recorded round outcomes to the configured backend.
type OutcomeProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewOutcomeProcessor creates a new OutcomeProcessor instance.
func NewOutcomeProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *OutcomeProcessor {
	return &OutcomeProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single outcome to the configured backend.
func (p *OutcomeProcessor) Process(ctx context.Context, o *models.RoundOutcome) error {
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, o)
	case "clickhouse":
		err = p.store.Store(ctx, o)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process outcome: %w", err)
	}

	p.metrics.RecordOutcome(o.Model, string(o.Horizon))
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes a full round's outcomes in a batch.
func (p *OutcomeProcessor) ProcessBatch(ctx context.Context, outcomes []*models.RoundOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, outcomes)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, outcomes)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, o := range outcomes {
		p.metrics.RecordOutcome(o.Model, string(o.Horizon))
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *OutcomeProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
