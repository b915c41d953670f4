package repository

import (
	"context"

	"ForecastBench/internal/domain/models"
)

// LabelStream is the ground-truth resolver feed: resolved labels per
// (round, horizon) arriving as they settle.
type LabelStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.LabelResolution, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher publishes recorded round outcomes to the outcome feed.
type Publisher interface {
	Publish(ctx context.Context, o *models.RoundOutcome) error
	PublishBatch(ctx context.Context, outcomes []*models.RoundOutcome) error
	Close() error
}

// Storage persists round outcomes and reloads full histories for
// report-time recomputation.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *models.RoundOutcome) error
	StoreBatch(ctx context.Context, outcomes []*models.RoundOutcome) error
	StoreResolution(ctx context.Context, r *models.LabelResolution) error
	LoadHistories(ctx context.Context) (map[string]*models.ModelHistory, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// HistoryStore serves raw persisted outcome rows for the history API,
// bypassing the in-memory histories.
type HistoryStore interface {
	GetOutcomes(ctx context.Context, model string, horizon models.Horizon, fromRound, toRound int) ([]models.RoundOutcome, error)
	GetLatestNOutcomes(ctx context.Context, model string, n int, horizon models.Horizon) ([]models.RoundOutcome, error)
}

// Metrics is the benchmark's operational metrics sink.
type Metrics interface {
	RecordOutcome(model string, horizon string)
	RecordFailure(model string, failureType string)
	RecordRoundScored(horizon string)
	RecordEnsembleProbability(horizon string, p float64)
	RecordWeightEntropy(horizon string, entropy float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
