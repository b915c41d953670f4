package repository

import (
	"context"
	"time"

	"ForecastBench/internal/domain/models"
	domrepo "ForecastBench/internal/domain/repository"
	"ForecastBench/pkg/cache"
)

// CachedHistoryStore wraps a HistoryStore with a read-through cache.
// Outcome rows are append-only, so stale entries only ever miss the
// newest round and a short TTL is enough.
type CachedHistoryStore struct {
	inner domrepo.HistoryStore
	cache cache.Service
	ttl   time.Duration
}

func NewCachedHistoryStore(inner domrepo.HistoryStore, c cache.Service, ttl time.Duration) *CachedHistoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedHistoryStore{inner: inner, cache: c, ttl: ttl}
}

func (s *CachedHistoryStore) GetOutcomes(ctx context.Context, model string, horizon models.Horizon, fromRound, toRound int) ([]models.RoundOutcome, error) {
	key := cache.GenerateKeyWithParams("history:range", model, string(horizon), fromRound, toRound)

	// cache errors fall through to the inner store
	var cached []models.RoundOutcome
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	out, err := s.inner.GetOutcomes(ctx, model, horizon, fromRound, toRound)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, s.ttl)
	return out, nil
}

func (s *CachedHistoryStore) GetLatestNOutcomes(ctx context.Context, model string, n int, horizon models.Horizon) ([]models.RoundOutcome, error) {
	key := cache.GenerateKeyWithParams("history:latest", model, string(horizon), n)

	var cached []models.RoundOutcome
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	out, err := s.inner.GetLatestNOutcomes(ctx, model, n, horizon)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, s.ttl)
	return out, nil
}

var _ domrepo.HistoryStore = (*CachedHistoryStore)(nil)
